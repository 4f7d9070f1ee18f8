package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Env reads secrets from the process environment.
type Env struct {
}

// NewEnv loads any of the listed .env files that exist into the environment.
// Variables already set in the environment take precedence.
func NewEnv(files ...string) (*Env, error) {
	for _, f := range files {
		if f == "" {
			continue
		}

		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %v (%w)", f, err)
		}
	}

	return &Env{}, nil
}

func (e *Env) Get(ctx context.Context, name string) (string, error) {
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}

	return "", fmt.Errorf("%v: %w", name, ErrNotFound)
}
