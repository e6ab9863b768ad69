package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawPayload_Event(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    DrawEvent
		wantErr bool
	}{
		{name: "complete", payload: `{"x":3,"y":4,"color":15}`, want: DrawEvent{X: 3, Y: 4, Color: 15}},
		{name: "explicit zeros", payload: `{"x":0,"y":0,"color":0}`, want: DrawEvent{}},
		{name: "empty", payload: `{}`, wantErr: true},
		{name: "missing y and color", payload: `{"x":5}`, wantErr: true},
		{name: "missing color", payload: `{"x":5,"y":1}`, wantErr: true},
		{name: "null color", payload: `{"x":5,"y":1,"color":null}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p DrawPayload
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &p))

			event, err := p.Event()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSerialization)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, event)
		})
	}
}
