package domain

import "strings"

// TokenHolding is a governance token balance on one chain. ChainID is a
// CAIP-2 identifier such as "eip155:8453"; Balance is in base units.
type TokenHolding struct {
	TokenAddress string `json:"token_address"`
	ChainID      string `json:"chain_id"`
	Balance      string `json:"balance"`
}

// HoldingsByToken reduces holdings to the token_address -> balance map the
// updates endpoint expects. Later entries win on duplicate addresses.
func HoldingsByToken(holdings []TokenHolding) map[string]string {
	out := make(map[string]string, len(holdings))
	for _, h := range holdings {
		out[h.TokenAddress] = h.Balance
	}
	return out
}

// Delegation is one DAO entry of the delegations response.
type Delegation struct {
	DaoName            string   `json:"dao_name"`
	DaoSlug            string   `json:"dao_slug"`
	TokenAmount        string   `json:"token_amount"`
	ChainIDs           []string `json:"chain_ids"`
	VotesCount         string   `json:"votes_count,omitempty"`
	ProposalsCount     *int     `json:"proposals_count,omitempty"`
	HasActiveProposals *bool    `json:"has_active_proposals,omitempty"`
}

// DelegationsData groups a wallet's DAO delegations.
type DelegationsData struct {
	ActiveDelegations      []Delegation `json:"active_delegations"`
	AvailableDelegations   []Delegation `json:"available_delegations"`
	RecommendedDelegations []Delegation `json:"recommended_delegations"`
}

// Slugs returns the DAO slugs of active and available delegations, without
// duplicates, in response order.
func (d DelegationsData) Slugs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]Delegation{d.ActiveDelegations, d.AvailableDelegations} {
		for _, del := range group {
			if del.DaoSlug == "" || seen[del.DaoSlug] {
				continue
			}
			seen[del.DaoSlug] = true
			out = append(out, del.DaoSlug)
		}
	}
	return out
}

// Priority ranks a DAO update.
type Priority string

const (
	PriorityUrgent    Priority = "urgent"
	PriorityImportant Priority = "important"
	PriorityFYI       Priority = "fyi"
)

// Rank orders priorities, most pressing first. Unknown values sort last.
func (p Priority) Rank() int {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityUrgent:
		return 0
	case PriorityImportant:
		return 1
	case PriorityFYI:
		return 2
	default:
		return 3
	}
}

// Category groups DAO updates.
type Category string

const (
	CategoryProposal   Category = "proposal"
	CategoryTreasury   Category = "treasury"
	CategoryGovernance Category = "governance"
	CategorySocial     Category = "social"
)

// UpdateAction is a link the user can follow from an update.
type UpdateAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// DaoUpdate is a prioritized governance update.
type DaoUpdate struct {
	ID          string         `json:"id"`
	DaoSlug     string         `json:"dao_slug"`
	DaoName     string         `json:"dao_name"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    Priority       `json:"priority"`
	Category    Category       `json:"category"`
	Timestamp   string         `json:"timestamp"`
	Metadata    map[string]any `json:"metadata"`
	Actions     []UpdateAction `json:"actions,omitempty"`
}

// NotificationPreferences selects which update priorities are delivered.
type NotificationPreferences struct {
	DiscordWebhookURL string          `json:"discordWebhookUrl,omitempty"`
	NotifyOn          NotifyOnToggles `json:"notifyOn"`
}

// NotifyOnToggles enables delivery per priority.
type NotifyOnToggles struct {
	Urgent    bool `json:"urgent"`
	Important bool `json:"important"`
	FYI       bool `json:"fyi"`
}

// NotificationSubscription is the subscribe request body.
type NotificationSubscription struct {
	Address     string                  `json:"address"`
	Preferences NotificationPreferences `json:"preferences"`
}
