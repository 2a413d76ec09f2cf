package p2p

import "fmt"

// Peer identifies a node by the pair (host, port); equality and use as a
// map key are both structural over that pair.
type Peer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (p Peer) String() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
