// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package persistable

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/serialization"
)

// CertBundle is a certificate with its private key and chain, as PEM.
// The parsed certificate and key are derived from the PEM material; they
// are never persisted and are recomputed on restore.
type CertBundle struct {
	// ARN identifies the certificate in the emulated service
	ARN string
	// Type is the certificate type, e.g. "IMPORTED"
	Type string
	// Status is the certificate status, e.g. "ISSUED"
	Status string
	// Certificate is the PEM encoded leaf certificate
	Certificate []byte
	// PrivateKey is the PEM encoded private key
	PrivateKey []byte
	// Chain is the PEM encoded chain, possibly empty
	Chain []byte
	// CreatedAt is the import or issue time
	CreatedAt time.Time

	cert *x509.Certificate
	key  crypto.Signer
}

var _ serialization.Persistable = (*CertBundle)(nil)

type certBundleProjection struct {
	ARN         string    `persist:"arn"`
	Type        string    `persist:"type"`
	Status      string    `persist:"status"`
	Certificate []byte    `persist:"certificate"`
	PrivateKey  []byte    `persist:"private_key"`
	Chain       []byte    `persist:"chain"`
	CreatedAt   time.Time `persist:"created_at"`
}

// NewCertBundle parses the PEM material and returns a bundle
func NewCertBundle(arn string, certificate, privateKey, chain []byte) (*CertBundle, error) {
	bundle := &CertBundle{
		ARN:         arn,
		Type:        "IMPORTED",
		Status:      "ISSUED",
		Certificate: certificate,
		PrivateKey:  privateKey,
		Chain:       chain,
		CreatedAt:   time.Now().UTC(),
	}
	if err := bundle.validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// X509 returns the parsed leaf certificate
func (b *CertBundle) X509() *x509.Certificate {
	return b.cert
}

// Signer returns the parsed private key
func (b *CertBundle) Signer() crypto.Signer {
	return b.key
}

// ToPersisted implements serialization.Persistable
func (b *CertBundle) ToPersisted() (any, error) {
	return certBundleProjection{
		ARN:         b.ARN,
		Type:        b.Type,
		Status:      b.Status,
		Certificate: b.Certificate,
		PrivateKey:  b.PrivateKey,
		Chain:       b.Chain,
		CreatedAt:   b.CreatedAt,
	}, nil
}

// FromPersisted implements serialization.Persistable
func (b *CertBundle) FromPersisted(decode func(target any) error) error {
	var projection certBundleProjection
	if err := decode(&projection); err != nil {
		return err
	}

	*b = CertBundle{
		ARN:         projection.ARN,
		Type:        projection.Type,
		Status:      projection.Status,
		Certificate: projection.Certificate,
		PrivateKey:  projection.PrivateKey,
		Chain:       projection.Chain,
		CreatedAt:   projection.CreatedAt,
	}
	return b.validate()
}

// validate parses the PEM material into the derived fields
func (b *CertBundle) validate() error {
	block, _ := pem.Decode(b.Certificate)
	if block == nil {
		return fmt.Errorf("%w: no PEM certificate", errors.ErrInvalidCertificate)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidCertificate, err)
	}

	key, err := parsePrivateKey(b.PrivateKey)
	if err != nil {
		return err
	}

	b.cert = cert
	b.key = key
	return nil
}

func parsePrivateKey(material []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(material)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM private key", errors.ErrInvalidCertificate)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a signer", errors.ErrInvalidCertificate, key)
		}
		return signer, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: unsupported private key encoding %q", errors.ErrInvalidCertificate, block.Type)
}
