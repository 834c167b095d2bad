package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// managedElectionABI is the election contract interface the bridge speaks.
// Kept in-repo so unit tests and call packing never depend on an artifact
// file being present; deployments still need the compiled bytecode.
const managedElectionABI = `[
  {"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
  {"inputs":[{"internalType":"string","name":"name","type":"string"}],"name":"addCandidate","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"candidateId","type":"uint256"}],"name":"deactivateCandidate","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"internalType":"bytes32","name":"voterHash","type":"bytes32"},{"internalType":"uint256","name":"candidateId","type":"uint256"}],"name":"vote","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"candidateCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"","type":"uint256"}],"name":"candidates","outputs":[{"internalType":"uint256","name":"id","type":"uint256"},{"internalType":"string","name":"name","type":"string"},{"internalType":"uint256","name":"voteCount","type":"uint256"},{"internalType":"bool","name":"isActive","type":"bool"}],"stateMutability":"view","type":"function"}
]`

// Artifact is a compiled contract: its ABI plus deployment bytecode.
type Artifact struct {
	ABI      abi.ABI
	Bytecode []byte
}

// artifactFile matches both artifact layouts in the wild: a Hardhat/Truffle
// style object with "abi" and "bytecode" keys, or a bare ABI array.
type artifactFile struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

// ParseArtifact decodes a compiled contract artifact. A bare ABI array is
// accepted but yields no bytecode, so Deploy will be refused.
func ParseArtifact(data []byte) (*Artifact, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		parsed, err := abi.JSON(strings.NewReader(trimmed))
		if err != nil {
			return nil, fmt.Errorf("parse contract abi: %w", err)
		}
		return &Artifact{ABI: parsed}, nil
	}

	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse contract artifact: %w", err)
	}
	if len(file.ABI) == 0 {
		return nil, fmt.Errorf("contract artifact has no abi")
	}
	parsed, err := abi.JSON(strings.NewReader(string(file.ABI)))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	return &Artifact{
		ABI:      parsed,
		Bytecode: common.FromHex(file.Bytecode),
	}, nil
}

// LoadArtifact reads and parses a contract artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract artifact: %w", err)
	}
	return ParseArtifact(data)
}

// DefaultABI returns the built-in election contract ABI.
func DefaultABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(managedElectionABI))
	if err != nil {
		// The constant is compile-time fixed; failing to parse it is a bug.
		panic(fmt.Sprintf("built-in election abi is invalid: %v", err))
	}
	return parsed
}
