package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPCompanyRegistry is the default CompanyRegistry, backed by a REST
// endpoint following the shape of the French open-data company registry
// (data.gouv.fr / INSEE Sirene API). Every call is bounded by Timeout,
// matching the teacher's Evaluator.timeout-wrapped external-call pattern;
// a caller with no real registry access simply never constructs one, and
// the external verifier degrades per spec §4.10.
type HTTPCompanyRegistry struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPCompanyRegistry returns a registry client with a 10s default
// per-call timeout (spec §5's default registry-query timeout).
func NewHTTPCompanyRegistry(baseURL string) *HTTPCompanyRegistry {
	return &HTTPCompanyRegistry{
		BaseURL: baseURL,
		Client:  http.DefaultClient,
		Timeout: 10 * time.Second,
	}
}

type sireneResponse struct {
	Siren        string `json:"siren"`
	Siret        string `json:"siret"`
	Name         string `json:"denomination"`
	TradeName    string `json:"sigle"`
	Address      string `json:"adresse"`
	PostalCode   string `json:"code_postal"`
	City         string `json:"libelle_commune"`
	Status       string `json:"etat_administratif"` // "A" active, "C" closed
	LegalForm    string `json:"nature_juridique"`
	CreationDate string `json:"date_creation"`
}

func (r *HTTPCompanyRegistry) lookup(ctx context.Context, path, id string) (CompanyInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/%s/%s", r.BaseURL, path, url.PathEscape(id))
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return CompanyInfo{}, err
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return CompanyInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return CompanyInfo{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return CompanyInfo{}, fmt.Errorf("ports: registry returned status %d", resp.StatusCode)
	}

	var body sireneResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return CompanyInfo{}, err
	}

	status := CompanyUnknown
	switch body.Status {
	case "A":
		status = CompanyActive
	case "C":
		status = CompanyClosed
	}

	var created *time.Time
	if t, err := time.Parse("2006-01-02", body.CreationDate); err == nil {
		created = &t
	}

	return CompanyInfo{
		Siren:        body.Siren,
		Siret:        body.Siret,
		Name:         body.Name,
		TradeName:    body.TradeName,
		Address:      body.Address,
		PostalCode:   body.PostalCode,
		City:         body.City,
		Status:       status,
		LegalForm:    body.LegalForm,
		CreationDate: created,
	}, nil
}

// LookupSiret queries the registry by SIRET (14-digit establishment id).
func (r *HTTPCompanyRegistry) LookupSiret(ctx context.Context, siret string) (CompanyInfo, error) {
	return r.lookup(ctx, "siret", siret)
}

// LookupSiren queries the registry by SIREN (9-digit company id).
func (r *HTTPCompanyRegistry) LookupSiren(ctx context.Context, siren string) (CompanyInfo, error) {
	return r.lookup(ctx, "siren", siren)
}

// HTTPVATValidator is the default VATValidator, backed by the EU VIES
// VAT-number validation service shape.
type HTTPVATValidator struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPVATValidator returns a VAT validator client with a 10s default
// per-call timeout.
func NewHTTPVATValidator(baseURL string) *HTTPVATValidator {
	return &HTTPVATValidator{
		BaseURL: baseURL,
		Client:  http.DefaultClient,
		Timeout: 10 * time.Second,
	}
}

type viesResponse struct {
	Valid   bool   `json:"isValid"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ValidateVAT validates a VAT number against the configured service.
func (v *HTTPVATValidator) ValidateVAT(ctx context.Context, countryCode, number string) (VATResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/check-vat-number?cc=%s&vat=%s", v.BaseURL, url.QueryEscape(countryCode), url.QueryEscape(number))
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return VATResult{}, err
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return VATResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VATResult{}, fmt.Errorf("ports: VAT validator returned status %d", resp.StatusCode)
	}

	var body viesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return VATResult{}, err
	}
	return VATResult{Valid: body.Valid, Name: body.Name, Address: body.Address}, nil
}
