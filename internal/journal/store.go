// Package journal keeps a local record of finished uploads so past
// sessions can be listed after the process exits.
package journal

import (
	"time"
)

// Record is one uploaded file
type Record struct {
	Session    string    `json:"session"`
	Filekey    string    `json:"filekey"`
	RemoteKey  string    `json:"remote_key"`
	LocalPath  string    `json:"local_path"`
	Size       int64     `json:"size"`
	ETag       string    `json:"etag"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store persists upload records
type Store interface {
	Record(rec *Record) error
	ListSession(session string) ([]*Record, error)
	Recent(limit int) ([]*Record, error)
	Close() error
}
