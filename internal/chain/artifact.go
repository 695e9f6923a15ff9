// Package chain talks to an EVM node through go-ethereum: it loads hardhat
// build artifacts, deploys contracts with the configured signer, and reads
// the XNET token and EpochStake contracts.
package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// ArtifactPath returns where hardhat writes the artifact for name.
func ArtifactPath(dir, name string) string {
	return filepath.Join(dir, name+".sol", name+".json")
}

// LoadArtifact reads the hardhat artifact for contract name under dir.
func LoadArtifact(dir, name string) (*Artifact, error) {
	path := ArtifactPath(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	art, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	if art.ContractName == "" {
		art.ContractName = name
	}
	return art, nil
}

// ParseArtifact decodes a hardhat artifact document.
func ParseArtifact(data []byte) (*Artifact, error) {
	var f artifactFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(f.ABI) == 0 {
		return nil, fmt.Errorf("missing abi")
	}
	parsed, err := abi.JSON(bytes.NewReader(f.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	code := common.FromHex(f.Bytecode)
	if len(code) == 0 {
		return nil, fmt.Errorf("missing bytecode")
	}
	return &Artifact{ContractName: f.ContractName, ABI: parsed, Bytecode: code}, nil
}
