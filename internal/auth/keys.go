package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/JunaYa/ferriskey/internal/config"
)

type tokenKeys struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

func loadKeys(cfg *config.Config) (*tokenKeys, error) {
	switch cfg.Auth.Algo {
	case "RS256":
		privPem := cfg.Auth.RSPrivateKey
		pubPem := cfg.Auth.RSPublicKey
		if privPem == "" || pubPem == "" {
			return &tokenKeys{method: jwt.SigningMethodHS256, signKey: []byte(cfg.Auth.HSSecret), verifyKey: []byte(cfg.Auth.HSSecret)}, nil
		}
		priv, err := parseRSAPrivateKeyFromPEM([]byte(privPem))
		if err != nil {
			return nil, err
		}
		pub, err := parseRSAPublicKeyFromPEM([]byte(pubPem))
		if err != nil {
			return nil, err
		}
		return &tokenKeys{method: jwt.SigningMethodRS256, signKey: priv, verifyKey: pub}, nil
	case "HS256":
		return &tokenKeys{method: jwt.SigningMethodHS256, signKey: []byte(cfg.Auth.HSSecret), verifyKey: []byte(cfg.Auth.HSSecret)}, nil
	default:
		return nil, errors.New("unsupported JWT_ALGO")
	}
}

func parseRSAPrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("invalid RSA private PEM")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return key, nil
	}
	k8, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err2 != nil {
		return nil, err
	}
	switch k := k8.(type) {
	case *rsa.PrivateKey:
		return k, nil
	default:
		return nil, errors.New("unsupported PKCS8 private key type")
	}
}

func parseRSAPublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("invalid RSA public PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k, nil
	default:
		return nil, errors.New("unsupported public key type")
	}
}
