package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_Target(t *testing.T) {
	routes := BidirectionalRoutes("111", "222")
	for i := range routes {
		require.NoError(t, routes[i].Verify([]string{"en", "ja"}))
	}

	tests := []struct {
		name     string
		route    Route
		detected string
		want     string
	}{
		{name: "english goes to japanese", route: routes[0], detected: "en", want: "ja"},
		{name: "japanese goes to english", route: routes[0], detected: "ja", want: "en"},
		{name: "anything else goes to english", route: routes[1], detected: "fr", want: "en"},
		{name: "fixed ignores detection", route: FixedRoute("1", "1", "es"), detected: "en", want: "es"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.route.Target(tt.detected))
		})
	}
}

func TestRoute_Verify(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		wantErr bool
	}{
		{name: "bidirectional", route: BidirectionalRoutes("1", "2")[0]},
		{name: "fixed", route: FixedRoute("1", "", "en")},
		{name: "detect defaults", route: Route{SourceChannelID: "1"}},
		{name: "no source", route: Route{Mode: ModeFixed, TargetLanguage: "en"}, wantErr: true},
		{name: "bad mode", route: Route{SourceChannelID: "1", Mode: "guess"}, wantErr: true},
		{name: "bad target", route: Route{SourceChannelID: "1", Mode: ModeFixed, TargetLanguage: "klingon"}, wantErr: true},
		{name: "three languages", route: Route{SourceChannelID: "1", Languages: []string{"en", "ja", "ko"}}, wantErr: true},
		{name: "bad pattern", route: Route{SourceChannelID: "1", MessagePattern: "{{.Name"}, wantErr: true},
		{name: "zero source", route: FixedRoute("0", "2", "en"), wantErr: true},
		{name: "non-numeric source", route: FixedRoute("general", "2", "en"), wantErr: true},
		{name: "zero destination", route: FixedRoute("1", "0", "en"), wantErr: true},
		{name: "non-numeric destination", route: FixedRoute("1", "not-a-snowflake", "en"), wantErr: true},
		{name: "negative source", route: FixedRoute("-1", "2", "en"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.route
			err := r.Verify([]string{"en", "ja"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, r.DestinationChannelID)
			assert.NotNil(t, r.messagePatternTemplate)
		})
	}
}

func TestRoute_Render(t *testing.T) {
	r := BidirectionalRoutes("1", "2")[0]
	require.NoError(t, r.Verify(nil))
	out, err := r.Render(MessageData{Name: "Shin", Message: "Hello", Language: "en", Source: "ja"})
	require.NoError(t, err)
	assert.Equal(t, "Shin: Hello", out)

	f := FixedRoute("1", "1", "en")
	require.NoError(t, f.Verify(nil))
	out, err = f.Render(MessageData{Name: "Shin", Message: "Hello", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "**Translated (en):** Hello", out)

	custom := Route{SourceChannelID: "1", MessagePattern: "[{{.Source}}->{{.Language}}] {{.Name}} says '{{.Message}}'"}
	require.NoError(t, custom.Verify([]string{"en", "ja"}))
	out, err = custom.Render(MessageData{Name: "Shin", Message: "Hello", Language: "en", Source: "ja"})
	require.NoError(t, err)
	assert.Equal(t, "[ja->en] Shin says 'Hello'", out)
}
