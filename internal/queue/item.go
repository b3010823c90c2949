package queue

// Item is one file waiting to be uploaded
type Item struct {
	Filekey   string `json:"filekey"`    // remote object name, without the session prefix
	LocalPath string `json:"local_path"` // file on the local filesystem
}
