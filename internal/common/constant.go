// Package common contains shared constants and sentinel errors used across
// savegamesync components.
package common

// IndexBlobName is the name of the blob holding the remote savegame index.
const IndexBlobName = "savegame-list.txt"

// SavegameBlobExt is appended to an entry id to form its blob name.
const SavegameBlobExt = ".zip"
