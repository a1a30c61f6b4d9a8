package manager

import (
	"time"

	"github.com/projecteru2/apkfetch/types"
)

// job is the persisted record for one download. It extends types.Row
// with what is needed to restart the transfer.
type job struct {
	types.Row

	Dest        string    `json:"dest"`
	MimeType    string    `json:"mime_type,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// jobIndex is the top-level structure of jobs.json.
type jobIndex struct {
	NextID int64          `json:"next_id"`
	Jobs   map[int64]*job `json:"jobs"`
}

// Init implements storage.Initer.
func (idx *jobIndex) Init() {
	if idx.Jobs == nil {
		idx.Jobs = make(map[int64]*job)
	}
	if idx.NextID < 1 {
		idx.NextID = 1
	}
}

// allocate stores j under a fresh id and returns the id.
func (idx *jobIndex) allocate(j *job) int64 {
	id := idx.NextID
	idx.NextID++
	j.ID = id
	idx.Jobs[id] = j
	return id
}

// row returns a detached copy of the row for id, safe to use after the
// store lock is released.
func (idx *jobIndex) row(id int64) (types.Row, bool) {
	j := idx.Jobs[id]
	if j == nil {
		return types.Row{}, false
	}
	return j.Row, true
}
