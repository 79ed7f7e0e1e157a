package session

import (
	"encoding/json"
	"sync"
)

// Recorder is a Sender that keeps every frame in memory.
type Recorder struct {
	mu     sync.Mutex
	frames [][]byte
	Err    error
}

// SendJSON implements Sender.
func (r *Recorder) SendJSON(v interface{}) error {
	if r.Err != nil {
		return r.Err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, data)
	return nil
}

// Frames returns the frames sent so far, decoded as generic JSON objects.
func (r *Recorder) Frames() []map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(r.frames))
	for _, f := range r.frames {
		var m map[string]interface{}
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}
