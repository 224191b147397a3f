package entity_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/rulegraph/internal/entity"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		e       entity.Entity
		wantErr string
	}{
		{
			name: "valid",
			e:    entity.New(entity.KindKeyword, "Reach"),
		},
		{
			name:    "bad id scheme",
			e:       entity.Entity{ID: "reach", Kind: entity.KindKeyword, Name: "Reach"},
			wantErr: "must start with",
		},
		{
			name:    "unknown kind",
			e:       entity.Entity{ID: "urn:ttrpg:spell:x", Kind: "Spell", Name: "X"},
			wantErr: "not a recognised entity kind",
		},
		{
			name:    "empty name",
			e:       entity.Entity{ID: "urn:ttrpg:keyword:x", Kind: entity.KindKeyword},
			wantErr: "name must not be empty",
		},
		{
			name:    "bad status",
			e:       entity.Entity{ID: "urn:ttrpg:keyword:x", Kind: entity.KindKeyword, Name: "X", Status: "draft"},
			wantErr: "status",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := entity.Validate(tc.e)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate: error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}
