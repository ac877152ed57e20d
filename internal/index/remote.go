package index

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dmitrijs2005/savegamesync/internal/blobstore"
	"github.com/dmitrijs2005/savegamesync/internal/common"
)

// Remote reads and writes the index blob. Every call goes to the store; the
// blob id is not cached between calls.
type Remote struct {
	Store blobstore.Store
	Name  string
}

// NewRemote returns a Remote using the standard index blob name.
func NewRemote(store blobstore.Store) *Remote {
	return &Remote{Store: store, Name: common.IndexBlobName}
}

// BlobName is the name of the index blob in the store.
func (r *Remote) BlobName() string {
	if r.Name == "" {
		return common.IndexBlobName
	}
	return r.Name
}

// Load downloads and parses the index. An absent index blob is an empty
// index. More than one index blob fails with ErrAmbiguousIndex.
func (r *Remote) Load(ctx context.Context) (*Index, error) {
	id, found, err := r.locate(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return New(), nil
	}

	var buf bytes.Buffer
	if err := r.Store.Download(ctx, id, &buf); err != nil {
		return nil, common.NewStoreError("download", r.BlobName(), err)
	}
	return Deserialize(buf.Bytes())
}

// Save replaces the index blob with idx, creating it on first use.
func (r *Remote) Save(ctx context.Context, idx *Index) error {
	id, found, err := r.locate(ctx)
	if err != nil {
		return err
	}
	if !found {
		id, err = r.Store.Create(ctx, r.BlobName())
		if err != nil {
			return common.NewStoreError("create", r.BlobName(), err)
		}
	}

	if err := r.Store.Upload(ctx, id, bytes.NewReader(idx.Serialize())); err != nil {
		return common.NewStoreError("upload", r.BlobName(), err)
	}
	return nil
}

func (r *Remote) locate(ctx context.Context) (string, bool, error) {
	blobs, err := r.Store.ListByName(ctx, r.BlobName())
	if err != nil {
		return "", false, common.NewStoreError("list", r.BlobName(), err)
	}
	switch len(blobs) {
	case 0:
		return "", false, nil
	case 1:
		return blobs[0].ID, true, nil
	default:
		return "", false, fmt.Errorf("load index: %w", &common.ConsistencyError{
			Name: r.BlobName(), Count: len(blobs), Err: common.ErrAmbiguousIndex,
		})
	}
}
