package storage

import (
	"context"
	"testing"

	"github.com/benvon/embody/internal/config"
	"github.com/benvon/embody/internal/tree"
	"go.uber.org/zap"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{name: "memory", backend: config.StoreBackendMemory},
		{name: "postgres without db", backend: config.StoreBackendPostgres, wantErr: true},
		{name: "unknown", backend: "etcd", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, closeFn, err := Open(context.Background(), &config.Config{StoreBackend: tt.backend}, nil, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if _, ok := store.(*tree.MemoryStore); !ok {
				t.Errorf("expected *tree.MemoryStore, got %T", store)
			}
			if err := closeFn(); err != nil {
				t.Errorf("close: %v", err)
			}
		})
	}
}
