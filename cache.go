package wgchat

import "sync"

// UserDirectory mirrors the server-reported user list. It is eventually
// consistent: every mutation event triggers a fresh user-list query, so the
// directory is a display cache, never an authority.
type UserDirectory struct {
	mu       sync.Mutex
	users    []string
	nextPage bool
}

// Replace swaps in a fresh server snapshot. The local identity is
// force-included: some servers omit the requesting user from its own list.
func (d *UserDirectory) Replace(users []string, self string, nextPage bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users = append([]string(nil), users...)
	if self != "" && !contains(d.users, self) {
		d.users = append(d.users, self)
	}
	d.nextPage = nextPage
}

// Rename applies a username change: the old name is dropped and the new one
// added if absent.
func (d *UserDirectory) Rename(oldName, newName string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if oldName != "" {
		d.users = remove(d.users, oldName)
	}
	if newName != "" && !contains(d.users, newName) {
		d.users = append(d.users, newName)
	}
}

// Snapshot returns a copy of the cached user list.
func (d *UserDirectory) Snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.users...)
}

// HasMore reports whether the server indicated further pages.
func (d *UserDirectory) HasMore() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextPage
}

// ChannelInfo is a cached per-channel snapshot.
type ChannelInfo struct {
	Name        string
	Description string
	Members     []string
}

// ChannelCache mirrors the server-reported channel list and per-channel
// info snapshots, with the same eventual-consistency caveat as
// UserDirectory.
type ChannelCache struct {
	mu       sync.Mutex
	names    []string
	nextPage bool
	info     map[string]ChannelInfo
}

// ReplaceList swaps in a fresh channel list snapshot.
func (c *ChannelCache) ReplaceList(names []string, nextPage bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append([]string(nil), names...)
	c.nextPage = nextPage
}

// Add records a channel we learned about outside a list refresh.
func (c *ChannelCache) Add(name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !contains(c.names, name) {
		c.names = append(c.names, name)
	}
}

// StoreInfo caches a channel info snapshot.
func (c *ChannelCache) StoreInfo(info ChannelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info == nil {
		c.info = make(map[string]ChannelInfo)
	}
	c.info[info.Name] = info
	if !contains(c.names, info.Name) {
		c.names = append(c.names, info.Name)
	}
}

// Info returns the cached snapshot for a channel, if any.
func (c *ChannelCache) Info(name string) (ChannelInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.info[name]
	return info, ok
}

// Snapshot returns a copy of the cached channel names.
func (c *ChannelCache) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

// HasMore reports whether the server indicated further pages.
func (c *ChannelCache) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextPage
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
