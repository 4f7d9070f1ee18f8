package gsheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/drive/v3"
)

type Revision struct {
	ID       string
	Modified time.Time
}

// LatestRevision returns the most recent revision of a Drive file.
func LatestRevision(ctx context.Context, gdrive *drive.Service, fileID string) (*Revision, error) {
	page := ""
	latest := Revision{}

	for {
		call := gdrive.Revisions.List(fileID).Fields("nextPageToken", "revisions(id,modifiedTime)").Context(ctx)
		if page != "" {
			call.PageToken(page)
		}

		revisions, err := call.Do()
		if err != nil {
			return nil, err
		}

		for _, revision := range revisions.Revisions {
			modified, err := time.Parse(time.RFC3339, revision.ModifiedTime)
			if err != nil {
				return nil, err
			}

			if latest.Modified.Before(modified) {
				latest.ID = revision.Id
				latest.Modified = modified
			}
		}

		if page = revisions.NextPageToken; page == "" {
			break
		}
	}

	if latest.Modified.IsZero() {
		return nil, fmt.Errorf("unable to identify latest revision for file ID %s", fileID)
	}

	return &latest, nil
}
