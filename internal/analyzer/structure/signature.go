package structure

import (
	"crypto/x509"
	"encoding/asn1"
	"strings"
	"time"

	"github.com/docforensic/docforensic/pkg/types"
)

// TrustStore is the set of certification authorities whose signatures
// the structure analyzer recognizes as authoritative. Matching is
// case-insensitive substring containment over the certificate's subject
// and issuer names.
type TrustStore struct {
	CANames []string
}

// DefaultTrustStore covers the certification authorities commonly seen
// on signed French invoices and administrative documents.
func DefaultTrustStore() *TrustStore {
	return &TrustStore{CANames: []string{
		"Certigna", "ChamberSign", "Universign", "CertEurope",
		"Docaposte", "Yousign", "DocuSign", "Adobe", "GlobalSign", "Entrust",
	}}
}

// SignatureVerdict is the outcome of checking a declared signature
// against the trust store.
type SignatureVerdict int

const (
	SignatureInvalid SignatureVerdict = iota
	SignatureUnverifiable
	SignatureNotTrusted
	SignatureTrusted
	SignatureTrustedExpired
)

type signatureCheck struct {
	verdict  SignatureVerdict
	signerDN string
	issuer   string
}

// verifySignature classifies a declared signature. Cryptographic digest
// verification over the ByteRange is out of scope here; the verdict is
// about the signing identity: no PKCS#7 payload at all is invalid, a
// payload with no parseable certificate is unverifiable, a parseable
// certificate is trusted or not by CA name, with validity checked
// against the clock.
func verifySignature(sig *types.SignatureRecord, store *TrustStore, now time.Time) signatureCheck {
	check := signatureCheck{signerDN: sig.SignerDN}
	if len(sig.Contents) == 0 {
		check.verdict = SignatureInvalid
		return check
	}

	certs := certificatesFromPKCS7(sig.Contents)
	if len(certs) == 0 {
		check.verdict = SignatureUnverifiable
		return check
	}

	// The signer certificate is conventionally the one whose subject is
	// not an issuer of any other cert in the bundle; first cert is a
	// serviceable approximation for the flat bundles signing tools emit.
	signer := certs[0]
	if check.signerDN == "" {
		check.signerDN = signer.Subject.String()
	}
	check.issuer = signer.Issuer.String()

	if !store.matches(signer) {
		check.verdict = SignatureNotTrusted
		return check
	}
	if now.After(signer.NotAfter) || now.Before(signer.NotBefore) {
		check.verdict = SignatureTrustedExpired
		return check
	}
	check.verdict = SignatureTrusted
	return check
}

func (s *TrustStore) matches(cert *x509.Certificate) bool {
	haystack := strings.ToLower(cert.Issuer.String() + " " + cert.Subject.String())
	for _, ca := range s.CANames {
		if strings.Contains(haystack, strings.ToLower(ca)) {
			return true
		}
	}
	return false
}

// certificatesFromPKCS7 walks the ASN.1 structure of a PKCS#7/CMS blob
// and collects every embedded X.509 certificate. A full CMS parser is
// unnecessary: certificates are themselves ASN.1 SEQUENCEs, so every
// constructed element is either parseable as a certificate or recursed
// into.
func certificatesFromPKCS7(der []byte) []*x509.Certificate {
	// Signature Contents fields are zero-padded to their reserved size;
	// strip trailing zeros before parsing.
	end := len(der)
	for end > 0 && der[end-1] == 0 {
		end--
	}
	return scanASN1(der[:end], 0)
}

const maxASN1Depth = 12

func scanASN1(data []byte, depth int) []*x509.Certificate {
	if depth > maxASN1Depth {
		return nil
	}
	var certs []*x509.Certificate
	rest := data
	for len(rest) > 0 {
		var raw asn1.RawValue
		tail, err := asn1.Unmarshal(rest, &raw)
		if err != nil {
			return certs
		}
		if raw.IsCompound {
			if cert, err := x509.ParseCertificate(raw.FullBytes); err == nil {
				certs = append(certs, cert)
			} else {
				certs = append(certs, scanASN1(raw.Bytes, depth+1)...)
			}
		}
		rest = tail
	}
	return certs
}
