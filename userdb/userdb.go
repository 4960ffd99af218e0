package userdb

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/jbsmith7741/toml"
	"github.com/rs/zerolog/log"
)

// UserEntry represents a record in the database
type UserEntry struct {
	DisplayName string
}

// UserDB maps discord user ids to display names, reloading when its file is written
type UserDB struct {
	mu      sync.RWMutex
	path    string
	users   map[string]UserEntry
	watcher *fsnotify.Watcher
}

// New initializes the user database. An empty path returns a database that knows no one.
// A missing file is created empty.
func New(ctx context.Context, path string) (*UserDB, error) {
	u := &UserDB{
		path:  path,
		users: make(map[string]UserEntry),
	}
	if path == "" {
		return u, nil
	}

	log.Debug().Str("path", path).Msg("initializing user db")
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		log.Debug().Msg("user db not found, creating a new one")
		err = u.save()
		if err != nil {
			return nil, fmt.Errorf("create user database: %w", err)
		}
	}

	err = u.reload()
	if err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}

	u.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("newWatcher: %w", err)
	}

	err = u.watcher.Add(path)
	if err != nil {
		u.watcher.Close()
		return nil, fmt.Errorf("watcherAdd: %w", err)
	}

	go u.loop(ctx)
	return u, nil
}

func (u *UserDB) loop(ctx context.Context) {
	defer u.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("user db loop exit")
			return
		case event, ok := <-u.watcher.Events:
			if !ok {
				log.Warn().Msg("user database watcher closed")
				return
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}
			log.Debug().Msg("users database modified, reloading")
			err := u.reload()
			if err != nil {
				log.Warn().Err(err).Msg("failed to reload users database")
			}
		case err, ok := <-u.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("user database failed to read file")
		}
	}
}

func (u *UserDB) reload() error {
	ue := make(map[string]UserEntry)
	_, err := toml.DecodeFile(u.path, &ue)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	u.mu.Lock()
	u.users = ue
	u.mu.Unlock()
	return nil
}

// Set updates or adds an entry for a specified user id, and persists it when backed by a file
func (u *UserDB) Set(discordID string, displayName string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[discordID] = UserEntry{DisplayName: displayName}
	if u.path == "" {
		return nil
	}
	return u.saveLocked()
}

// Name returns the display name of a user based on their ID, or empty string
func (u *UserDB) Name(discordID string) string {
	if u == nil {
		return ""
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.users[discordID].DisplayName
}

// Len returns how many users are known
func (u *UserDB) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.users)
}

func (u *UserDB) save() error {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.saveLocked()
}

func (u *UserDB) saveLocked() error {
	f, err := os.Create(u.path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	err = enc.Encode(u.users)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
