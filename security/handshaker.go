// File: security/handshaker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HandshakerFromOptions is the integration seam between a socket's
// configured SocketOptions and the mechanism-specific Handshaker that
// actually drives the wire handshake: it picks CURVE, PLAIN, or NULL
// the same way libzmq derives its active mechanism from whichever
// ZMQ_CURVE_*/ZMQ_PLAIN_* socket options are set.

package security

import (
	"fmt"

	"golang.org/x/crypto/curve25519"

	"github.com/momentics/zmtpgo/api"
	"github.com/momentics/zmtpgo/security/zap"
)

// MessageCodec is implemented by mechanisms that encrypt the
// Active-phase message stream on top of their handshake. CURVE
// implements it; NULL and PLAIN pass frame bodies through unmodified
// and don't.
type MessageCodec interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(body []byte) ([]byte, error)
}

// CurvePublicFromSecret derives the X25519 public key for secret, for
// callers (WithCurveServer) that configure only a secret key.
func CurvePublicFromSecret(secret [CurveKeySize]byte) ([CurveKeySize]byte, error) {
	var pub [CurveKeySize]byte
	out, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return pub, fmt.Errorf("security: derive curve public key: %w", err)
	}
	copy(pub[:], out)
	return pub, nil
}

// HandshakerFromOptions selects the Handshaker a connection should run
// given opts, in CURVE > PLAIN > ZAP-validated-PLAIN-server > NULL
// precedence. The client or server variant of CURVE and PLAIN is
// chosen from opts (CurveServer, CurveServerKey, PlainUsername,
// ZapDomain); asServer does not affect the choice.
func HandshakerFromOptions(opts api.SocketOptions, asServer bool) (Handshaker, error) {
	switch {
	case opts.CurveServer:
		pub, err := CurvePublicFromSecret(opts.CurveSecretKey)
		if err != nil {
			return nil, err
		}
		return NewCurveServer(CurveKeyPair{Public: pub, Secret: opts.CurveSecretKey})

	case opts.CurveServerKey != [CurveKeySize]byte{}:
		longTerm := CurveKeyPair{Public: opts.CurvePublicKey, Secret: opts.CurveSecretKey}
		return NewCurveClient(longTerm, opts.CurveServerKey)

	case opts.PlainUsername != "":
		return &PlainClient{Username: opts.PlainUsername, Password: opts.PlainPassword}, nil

	case opts.ZapDomain != "":
		return &PlainServer{
			Auth:   zap.NewClient(0),
			Domain: opts.ZapDomain,
		}, nil

	default:
		return NullHandshaker{}, nil
	}
}
