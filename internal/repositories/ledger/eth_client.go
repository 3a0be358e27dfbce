package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/ethclient"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
)

// ErrConnection marks node connectivity failures, surfaced distinctly from
// transaction failures so callers can report an infrastructure condition.
var ErrConnection = errors.New("ethereum node connection error")

type EthClient struct {
	// config
	url string

	// state
	*ethclient.Client
}

func DialContext(ctx context.Context, urlString string) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, urlString)
	if err != nil {
		return nil, lib.WrapError(ErrConnection, err)
	}
	return &EthClient{
		Client: client,
		url:    urlString,
	}, nil
}

func (c *EthClient) URL() string {
	return c.url
}
