package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError is the program error an Anchor program prints to its logs.
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// RPCErrorAnalysis is what could be extracted from a failed sendTransaction.
type RPCErrorAnalysis struct {
	Type             string       `json:"type"`
	Code             int          `json:"code,omitempty"`
	Message          string       `json:"message"`
	StaleBlockhash   bool         `json:"stale_blockhash,omitempty"`
	SimulationFailed bool         `json:"simulation_failed,omitempty"`
	Logs             []string     `json:"logs,omitempty"`
	Anchor           *AnchorError `json:"anchor_error,omitempty"`
	InstructionError interface{}  `json:"instruction_error,omitempty"`
}

// ErrorAnalyzer разбирает ошибки отправки транзакций: preflight-симуляцию,
// логи программы и просроченный blockhash.
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeRPCError extracts the node's verdict from err.
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) RPCErrorAnalysis {
	if err == nil {
		return RPCErrorAnalysis{Type: "none"}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return RPCErrorAnalysis{Type: "generic_error", Message: err.Error()}
	}

	analysis := RPCErrorAnalysis{
		Type:             "rpc_error",
		Code:             rpcErr.Code,
		Message:          rpcErr.Message,
		StaleBlockhash:   strings.Contains(rpcErr.Message, "Blockhash not found"),
		SimulationFailed: strings.Contains(rpcErr.Message, "Transaction simulation failed"),
	}
	if !analysis.SimulationFailed {
		return analysis
	}

	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return analysis
	}
	if logs, ok := data["logs"].([]interface{}); ok {
		for _, entry := range logs {
			line, ok := entry.(string)
			if !ok {
				continue
			}
			analysis.Logs = append(analysis.Logs, line)
			if anchorErr, ok := ParseAnchorErrorLog(line); ok {
				analysis.Anchor = &anchorErr
				ea.logger.Warn("Anchor error detected",
					zap.Int("code", anchorErr.Code),
					zap.String("name", anchorErr.Name),
					zap.String("message", anchorErr.Msg))
			}
		}
	}
	analysis.InstructionError = data["err"]

	return analysis
}

// ParseAnchorErrorLog parses a line such as
// "Program log: AnchorError occurred. Error Code: ExceededSlippage. Error Number: 6004. Error Message: Exceeded slippage."
func ParseAnchorErrorLog(line string) (AnchorError, bool) {
	if !strings.Contains(line, "AnchorError") {
		return AnchorError{}, false
	}

	var result AnchorError
	if _, rest, ok := strings.Cut(line, "Error Code:"); ok {
		result.Name = strings.TrimSpace(firstSentence(rest))
	}
	if _, rest, ok := strings.Cut(line, "Error Number:"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(firstSentence(rest))); err == nil {
			result.Code = n
		}
	}
	if _, rest, ok := strings.Cut(line, "Error Message:"); ok {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(rest), ".")
	}
	return result, result.Code != 0 || result.Name != ""
}

// AnchorErrorFrom returns the Anchor error printed during preflight
// simulation, if err carries one.
func AnchorErrorFrom(err error) (AnchorError, bool) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return AnchorError{}, false
	}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return AnchorError{}, false
	}
	logs, _ := data["logs"].([]interface{})
	for _, entry := range logs {
		if line, ok := entry.(string); ok {
			if anchorErr, ok := ParseAnchorErrorLog(line); ok {
				return anchorErr, true
			}
		}
	}
	return AnchorError{}, false
}

func firstSentence(s string) string {
	head, _, _ := strings.Cut(s, ".")
	return head
}

// FormatErrorAnalysis renders the analysis as indented JSON for the logs.
func (ea *ErrorAnalyzer) FormatErrorAnalysis(analysis RPCErrorAnalysis) string {
	jsonBytes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting analysis: %v", err)
	}
	return string(jsonBytes)
}
