package model

import (
	"fmt"
	"strings"
	"time"
)

// Network identifies a supported blockchain.
type Network string

const (
	NetworkBitcoin   Network = "bitcoin"
	NetworkEthereum  Network = "ethereum"
	NetworkAvalanche Network = "avalanche"
	NetworkPolygon   Network = "polygon"
	NetworkSolana    Network = "solana"
)

// networkGenesis maps each network to its genesis date, used as the lower
// bound for the ALL time range instead of querying for the true minimum.
var networkGenesis = map[Network]time.Time{
	NetworkBitcoin:   time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC),
	NetworkEthereum:  time.Date(2015, 7, 30, 0, 0, 0, 0, time.UTC),
	NetworkAvalanche: time.Date(2020, 9, 23, 0, 0, 0, 0, time.UTC),
	NetworkPolygon:   time.Date(2020, 5, 30, 0, 0, 0, 0, time.UTC),
	NetworkSolana:    time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC),
}

// Networks returns the supported networks in display order.
func Networks() []Network {
	return []Network{
		NetworkBitcoin,
		NetworkEthereum,
		NetworkAvalanche,
		NetworkPolygon,
		NetworkSolana,
	}
}

// ParseNetwork validates a network name.
func ParseNetwork(input string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(input)))
	if _, ok := networkGenesis[n]; !ok {
		return "", fmt.Errorf("unsupported network: %s", input)
	}
	return n, nil
}

// Genesis returns the network's genesis date in UTC.
func (n Network) Genesis() time.Time {
	return networkGenesis[n]
}

func (n Network) String() string {
	return string(n)
}
