package model

import (
	"fmt"
	"regexp"
	"sort"
)

// Sentinel values used for channel ids missing from the table.
const (
	UnknownChannelName  = "Unknown"
	UnknownChannelColor = "#888888"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Channel is a sales channel (delivery service) a store belongs to.
type Channel struct {
	ID    int
	Name  string
	Color string
}

// ChannelConfig maps channel ids to their display name and color.
// It is built once and never modified afterwards.
type ChannelConfig struct {
	byID map[int]Channel
	ids  []int
}

// NewChannelConfig builds the mapping. Duplicate ids, blank names and colors not of the
// form #RRGGBB are rejected. An empty list is valid; every lookup then yields the sentinel.
func NewChannelConfig(channels []Channel) (*ChannelConfig, error) {
	cc := &ChannelConfig{
		byID: make(map[int]Channel, len(channels)),
		ids:  make([]int, 0, len(channels)),
	}
	for _, ch := range channels {
		if _, dup := cc.byID[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate channel id %d", ch.ID)
		}
		if ch.Name == "" {
			return nil, fmt.Errorf("channel %d has no name", ch.ID)
		}
		if !colorPattern.MatchString(ch.Color) {
			return nil, fmt.Errorf("channel %d color %q is not of the form #RRGGBB", ch.ID, ch.Color)
		}
		cc.byID[ch.ID] = ch
		cc.ids = append(cc.ids, ch.ID)
	}
	sort.Ints(cc.ids)
	return cc, nil
}

// Lookup returns the channel for id, or the Unknown/#888888 sentinel.
func (c *ChannelConfig) Lookup(id int) Channel {
	if ch, ok := c.byID[id]; ok {
		return ch
	}
	return Channel{ID: id, Name: UnknownChannelName, Color: UnknownChannelColor}
}

// Known reports whether id is in the table.
func (c *ChannelConfig) Known(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs returns the configured ids in ascending order. The slice is a copy.
func (c *ChannelConfig) IDs() []int {
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of configured channels.
func (c *ChannelConfig) Len() int {
	return len(c.ids)
}
