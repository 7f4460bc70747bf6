package middleware

import (
	"time"

	"github.com/google/uuid"
)

// DataPacket is the unit of work flowing through a middleware chain. A
// packet is passed by reference: each stage may mutate Data and Metadata
// in place before forwarding. Packets are not persisted anywhere; they
// live for the duration of one chain run.
type DataPacket struct {
	ID        string                 `json:"id"`
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata"`
	Tags      map[string]struct{}    `json:"tags,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// NewDataPacket creates a packet around the given payload with a fresh
// id and empty metadata.
func NewDataPacket(data map[string]interface{}) *DataPacket {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &DataPacket{
		ID:        uuid.NewString(),
		Data:      data,
		Metadata:  make(map[string]interface{}),
		Tags:      make(map[string]struct{}),
		CreatedAt: time.Now(),
	}
}

// AddTag adds a tag to the packet's tag set.
func (p *DataPacket) AddTag(tag string) {
	if p.Tags == nil {
		p.Tags = make(map[string]struct{})
	}
	p.Tags[tag] = struct{}{}
}

// HasTag reports whether the packet carries the tag.
func (p *DataPacket) HasTag(tag string) bool {
	_, ok := p.Tags[tag]
	return ok
}
