// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package contract

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/danielhkuo/votechain/errs"
)

// JSON-RPC error codes used by wallets and nodes.
const (
	codeUserRejected    = 4001 // EIP-1193
	codeUnauthorized    = 4100
	codeExecutionRevert = 3
)

// Classify maps a provider or node error onto the error taxonomy.
// Errors that are already categorized pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var categorized *errs.Error
	if errors.As(err, &categorized) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.New(errs.TransportError, op, err)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected, codeUnauthorized:
			return errs.New(errs.UserRejected, op, err)
		case codeExecutionRevert:
			return &errs.Error{Kind: errs.ContractReverted, Op: op, Reason: revertReason(err), Err: err}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return errs.New(errs.UserRejected, op, err)
	case strings.Contains(msg, "execution reverted"), strings.Contains(msg, "revert"):
		return &errs.Error{Kind: errs.ContractReverted, Op: op, Reason: revertReason(err), Err: err}
	}

	return errs.New(errs.TransportError, op, err)
}

// revertReason recovers a human-readable reason: an Error(string) message
// verbatim, a custom ABI error by name, or the node's own text after
// "execution reverted:". Returns "" when nothing readable exists.
func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := revertData(dataErr.ErrorData()); len(data) >= 4 {
			if reason, uerr := abi.UnpackRevert(data); uerr == nil {
				return reason
			}
			if name := customErrorName(data); name != "" {
				return name
			}
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, "execution reverted:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("execution reverted:"):])
	}
	return ""
}

func revertData(v any) []byte {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil
	}
	return data
}

func customErrorName(data []byte) string {
	for name, e := range ABI.Errors {
		if bytes.Equal(e.ID.Bytes()[:4], data[:4]) {
			return name
		}
	}
	return ""
}
