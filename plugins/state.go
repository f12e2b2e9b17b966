package plugins

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/plugstore/types"
)

// StateVersion stamps every persisted document.
const StateVersion = 1

// persistedState is the on-disk layout of the registry.
type persistedState struct {
	State   pluginState `json:"state"`
	Version int         `json:"version"`
}

type pluginState struct {
	Plugins        map[string]types.Plugin `json:"plugins"`
	LastUpdateTime int64                   `json:"lastUpdateTime"`
}

func encodeState(plugins map[string]types.Plugin, lastUpdate int64) ([]byte, error) {
	return json.Marshal(persistedState{
		State:   pluginState{Plugins: plugins, LastUpdateTime: lastUpdate},
		Version: StateVersion,
	})
}

func decodeState(data []byte) (*persistedState, error) {
	var st persistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode plugin state: %w", err)
	}
	if st.State.Plugins == nil {
		st.State.Plugins = make(map[string]types.Plugin)
	}
	// map keys are authoritative
	for id, p := range st.State.Plugins {
		p.ID = id
		st.State.Plugins[id] = p
	}
	return &st, nil
}
