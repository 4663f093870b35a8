// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contentstore

import (
	"github.com/google/go-github/v66/github"

	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Content Types

// Entry is one item of a directory listing.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// IsFile reports whether the entry is a regular file.
func (entry Entry) IsFile() bool { return entry.Type == EntryFile }

// File is a decoded file together with the blob sha used as an update guard.
type File struct {
	Entry
	Content []byte
}

const (
	EntryFile = "file"
	EntryDir  = "dir"
)

// # Git Data Types

// Encoding names the representation of a blob payload.
type Encoding string

const (
	EncodingBase64 Encoding = "base64"
	EncodingUTF8   Encoding = "utf-8"
)

// TreeItem is one entry layered onto a base tree. Exactly one of SHA or
// Content is set.
type TreeItem struct {
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Type    string `json:"type"`
	SHA     string `json:"sha,omitempty"`
	Content string `json:"content,omitempty"`
}

// treeEntry converts the item for a create-tree request. Content is always
// sent when SHA is empty, since an entry with neither is a deletion.
func (item TreeItem) treeEntry() *github.TreeEntry {
	entry := &github.TreeEntry{
		Path: github.String(item.Path),
		Mode: github.String(item.Mode),
		Type: github.String(item.Type),
	}
	if item.SHA != "" {
		entry.SHA = github.String(item.SHA)
	} else {
		entry.Content = github.String(item.Content)
	}
	return entry
}

// BlobItem stages an already-created blob at path.
func BlobItem(path, blobSHA string) TreeItem {
	return TreeItem{Path: path, Mode: constants.FileMode, Type: "blob", SHA: blobSHA}
}

// TextItem stages inline UTF-8 content at path.
func TextItem(path, content string) TreeItem {
	return TreeItem{Path: path, Mode: constants.FileMode, Type: "blob", Content: content}
}

// # Job Types

// JobRun is a workflow run as reported by the Actions API.
type JobRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
}

const (
	RunQueued     = "queued"
	RunInProgress = "in_progress"
	RunCompleted  = "completed"
	RunSuccess    = "success"
)
