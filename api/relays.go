package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

func (t *API) relays(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	type Relay struct {
		Name        string   `json:"name"`
		Source      string   `json:"source_channel_id"`
		Destination string   `json:"destination_channel_id"`
		Mode        string   `json:"mode"`
		Target      string   `json:"target_language,omitempty"`
		Languages   []string `json:"languages,omitempty"`
	}
	type Resp struct {
		Relays []Relay `json:"relays"`
	}

	resp := Resp{Relays: []Relay{}}
	for _, route := range t.routes {
		resp.Relays = append(resp.Relays, Relay{
			Name:        route.Name,
			Source:      route.SourceChannelID,
			Destination: route.DestinationChannelID,
			Mode:        route.Mode,
			Target:      route.TargetLanguage,
			Languages:   route.Languages,
		})
	}

	log.Debug().Int("relays", len(resp.Relays)).Msg("api routes")
	err := json.NewEncoder(w).Encode(resp)
	if err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}
