// Package source implements the client for the upstream compendium API the
// bulk importer pulls creature records from.
package source

// NamedRef is the compendium API's ubiquitous {name, url} reference pair.
type NamedRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PageItem is one entry of a paginated listing.
type PageItem struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// listResponse is the envelope of the paginated listing endpoint.
type listResponse struct {
	Count   int        `json:"count"`
	Results []PageItem `json:"results"`
}

// DetailStat is one stat block of a detail document.
type DetailStat struct {
	BaseStat int      `json:"base_stat"`
	Effort   int      `json:"effort"`
	Stat     NamedRef `json:"stat"`
}

// DetailAbility is one ability block of a detail document.
type DetailAbility struct {
	Ability  NamedRef `json:"ability"`
	IsHidden bool     `json:"is_hidden"`
}

// DetailType is one type block of a detail document.
type DetailType struct {
	Type NamedRef `json:"type"`
}

// Detail is the raw per-creature detail document. Height and weight arrive
// in the source's decimetre/hectogram units; normalization happens in the
// transformer, not here.
type Detail struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Height         int             `json:"height"`
	Weight         int             `json:"weight"`
	BaseExperience int             `json:"base_experience"`
	IsDefault      bool            `json:"is_default"`
	Species        NamedRef        `json:"species"`
	Stats          []DetailStat    `json:"stats"`
	Abilities      []DetailAbility `json:"abilities"`
	Types          []DetailType    `json:"types"`
}

// Species is the per-creature species sub-document.
type Species struct {
	Name           string   `json:"name"`
	CaptureRate    *int     `json:"capture_rate"`
	BaseHappiness  *int     `json:"base_happiness"`
	GrowthRate     NamedRef `json:"growth_rate"`
	EvolutionChain struct {
		URL string `json:"url"`
	} `json:"evolution_chain"`
}

// EvolutionDetail is one trigger condition of a chain node. Nodes may carry
// several; only the first is consumed downstream.
type EvolutionDetail struct {
	MinLevel *int     `json:"min_level"`
	Trigger  NamedRef `json:"trigger"`
}

// ChainLink is one node of the evolution-chain tree.
type ChainLink struct {
	Species          NamedRef          `json:"species"`
	EvolutionDetails []EvolutionDetail `json:"evolution_details"`
	EvolvesTo        []ChainLink       `json:"evolves_to"`
}

// EvolutionChain is the evolution-chain sub-document.
type EvolutionChain struct {
	Chain ChainLink `json:"chain"`
}

// Encounter is one location-encounter entry.
type Encounter struct {
	LocationArea NamedRef `json:"location_area"`
}
