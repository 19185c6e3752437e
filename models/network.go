// SPDX-License-Identifier: Apache-2.0

package models

// ConnectionType mirrors the coarse link type reported by the platform
// connectivity layer.
type ConnectionType string

const (
	ConnectionWifi     ConnectionType = "wifi"
	ConnectionCellular ConnectionType = "cellular"
	ConnectionEthernet ConnectionType = "ethernet"
	ConnectionNone     ConnectionType = "none"
	ConnectionUnknown  ConnectionType = "unknown"
)

// NetworkState is the process-wide connectivity snapshot owned by the network
// monitor. Consumers receive it by value and never mutate it.
//
// InternetReachable is a tri-state: nil means the platform has not determined
// end-to-end reachability yet. Unknown deliberately counts as reachable:
// a live request discovering a real failure is cheaper than queuing writes
// that would have succeeded.
type NetworkState struct {
	Online            bool           `json:"online"`
	InternetReachable *bool          `json:"internet_reachable,omitempty"`
	ConnectionType    ConnectionType `json:"connection_type"`
}

// Usable reports whether the engine should attempt remote calls right now.
func (s NetworkState) Usable() bool {
	if !s.Online {
		return false
	}
	// nil = unknown reachability: fail open.
	return s.InternetReachable == nil || *s.InternetReachable
}
