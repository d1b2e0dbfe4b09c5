package model

import "strings"

// Settings mirrors config/settings.json.
type Settings struct {
	NomPharmacie  string `json:"nom_pharmacie"`
	Adresse       string `json:"adresse"`
	CodePostal    string `json:"code_postal"`
	Ville         string `json:"ville"`
	Telephone     string `json:"telephone"`
	FournisseurIA string `json:"fournisseur_ia"`
	CleAPI        string `json:"cle_api"`
	ModeleIA      string `json:"modele_ia,omitempty"`
	SiteWeb       string `json:"site_web"`
	Instagram     string `json:"instagram"`
	Facebook      string `json:"facebook"`
	X             string `json:"x"`
	LinkedIn      string `json:"linkedin"`
}

// MissingRequired lists the json names of required fields that are blank.
func (s *Settings) MissingRequired() []string {
	required := []struct {
		name  string
		value string
	}{
		{"nom_pharmacie", s.NomPharmacie},
		{"adresse", s.Adresse},
		{"code_postal", s.CodePostal},
		{"ville", s.Ville},
		{"telephone", s.Telephone},
		{"fournisseur_ia", s.FournisseurIA},
		{"cle_api", s.CleAPI},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (s *Settings) Snapshot() PharmacySnapshot {
	return PharmacySnapshot{
		NomPharmacie: s.NomPharmacie,
		Adresse:      s.Adresse,
		CodePostal:   s.CodePostal,
		Ville:        s.Ville,
	}
}

// PharmacyContext is the read-only view shown on the session screen.
type PharmacyContext struct {
	NomPharmacie string `json:"nom_pharmacie"`
	Adresse      string `json:"adresse"`
	CodePostal   string `json:"code_postal"`
	Ville        string `json:"ville"`
	SiteWeb      string `json:"site_web"`
	Instagram    string `json:"instagram"`
	Facebook     string `json:"facebook"`
	X            string `json:"x"`
	LinkedIn     string `json:"linkedin"`
	LogoPath     string `json:"logo_path"`
}
