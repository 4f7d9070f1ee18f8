package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretManager reads the latest version of secrets stored in Google Cloud
// Secret Manager for a project.
type SecretManager struct {
	client  *secretmanager.Client
	project string
}

func NewSecretManager(ctx context.Context, project string, opts ...option.ClientOption) (*SecretManager, error) {
	if project == "" {
		return nil, fmt.Errorf("missing Secret Manager project")
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Secret Manager client (%w)", err)
	}

	return &SecretManager{
		client:  client,
		project: project,
	}, nil
}

func (s *SecretManager) Get(ctx context.Context, name string) (string, error) {
	rq := secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%v/secrets/%v/versions/latest", s.project, name),
	}

	version, err := s.client.AccessSecretVersion(ctx, &rq)
	if status.Code(err) == codes.NotFound {
		return "", fmt.Errorf("%v: %w", name, ErrNotFound)
	} else if err != nil {
		return "", err
	}

	return string(version.GetPayload().GetData()), nil
}

func (s *SecretManager) Close() error {
	return s.client.Close()
}
