package blockchain

import (
	"context"
	"log/slog"
	"slices"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/samber/lo"
)

// maxBatchSize bounds a single JSON-RPC batch request
const maxBatchSize = 100

// MessageSource returns the serialized message of each transaction id that has one
type MessageSource interface {
	TransactionMessages(ctx context.Context, ids []string) (map[string]string, error)
}

// SolanaFeeEstimator estimates Solana transaction fees with getFeeForMessage
type SolanaFeeEstimator struct {
	client   *Client
	messages MessageSource
	logger   *slog.Logger
}

// NewSolanaFeeEstimator creates an estimator
func NewSolanaFeeEstimator(client *Client, messages MessageSource, logger *slog.Logger) *SolanaFeeEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SolanaFeeEstimator{client: client, messages: messages, logger: logger}
}

type feeForMessageResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *uint64 `json:"value"`
}

// EstimatedFees returns fees in lamports. Transactions without a stored message, or whose
// message the node can no longer price, are left out.
func (e *SolanaFeeEstimator) EstimatedFees(ctx context.Context, txIDs []string) (map[string]uint64, error) {
	fees := make(map[string]uint64)
	if len(txIDs) == 0 {
		return fees, nil
	}

	messages, err := e.messages.TransactionMessages(ctx, txIDs)
	if err != nil {
		return nil, err
	}
	ids := lo.Keys(messages)
	slices.Sort(ids)

	for _, chunk := range lo.Chunk(ids, maxBatchSize) {
		results := make([]feeForMessageResult, len(chunk))
		batch := make([]rpc.BatchElem, len(chunk))
		for i, id := range chunk {
			batch[i] = rpc.BatchElem{
				Method: "getFeeForMessage",
				Args:   []any{messages[id], map[string]string{"commitment": "processed"}},
				Result: &results[i],
			}
		}

		err := e.client.Call(ctx, func(ctx context.Context, client *rpc.Client) error {
			return client.BatchCallContext(ctx, batch)
		})
		if err != nil {
			return nil, err
		}

		for i, id := range chunk {
			if batch[i].Error != nil {
				e.logger.Debug("Fee estimate failed", "tx_id", id, "error", batch[i].Error)
				continue
			}
			if results[i].Value == nil {
				continue
			}
			fees[id] = *results[i].Value
		}
	}

	return fees, nil
}
