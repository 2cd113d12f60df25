package vault

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/laurinneff/passwd.mgr/internal/crypto"
)

// ContainerVersion is the envelope format written by Seal.
const ContainerVersion = 1

// Header is the unencrypted part of a container. Its JSON form is the
// associated data of the encryption, so every field is authenticated.
type Header struct {
	Version   int              `json:"version"`
	Algorithm string           `json:"algorithm"`
	KDF       crypto.KDFParams `json:"kdf"`
	Salt      []byte           `json:"salt"`
}

// Container is the on-disk envelope. Byte slices encode as standard
// base64 with padding.
type Container struct {
	Header
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	AuthTag    []byte `json:"authTag,omitempty"`
}

func (h Header) associatedData() ([]byte, error) {
	ad, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	return ad, nil
}

func (c *Container) marshal() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal container: %w", err)
	}
	return append(data, '\n'), nil
}

func parseContainer(raw []byte) (*Container, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var c Container
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after container")
	}
	if c.Version != ContainerVersion {
		return nil, fmt.Errorf("container version %d", c.Version)
	}
	return &c, nil
}
