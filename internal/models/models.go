// Package models defines the data shared by the registry, the index, the
// packager, the blob store and the engine.
package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/google/uuid"
)

// SaveSpec lists the paths, relative to a game's install directory, that
// make up the game's save data. Order matters only for logging.
type SaveSpec struct {
	GameName  string   `yaml:"name"`
	SavePaths []string `yaml:"paths"`
}

// SavegameEntry identifies one snapshot in the remote index.
//
// Timestamp is the latest modification time seen across the snapshot's source
// paths at capture time, not the upload time.
type SavegameEntry struct {
	ID        uuid.UUID
	Timestamp time.Time
}

// BlobName returns the name of the blob backing the entry.
func (e SavegameEntry) BlobName() string {
	return BlobNameForID(e.ID)
}

// Blob describes an object in the remote blob store. Names are not unique;
// ID is.
type Blob struct {
	ID   string
	Name string
	Size int64
}

// BlobNameForID is the only link between an index entry and its blob.
func BlobNameForID(id uuid.UUID) string {
	return id.String() + common.SavegameBlobExt
}

// IDFromBlobName parses a savegame blob name back into its id.
func IDFromBlobName(name string) (uuid.UUID, bool) {
	raw, ok := strings.CutSuffix(name, common.SavegameBlobExt)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id.String() != raw {
		return uuid.Nil, false
	}
	return id, true
}
