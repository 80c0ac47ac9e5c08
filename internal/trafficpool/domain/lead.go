// Package domain defines the traffic pool bounded context's core types.
// Everything here is plain data plus pure derivations; services own the
// lifecycle and the store owns the records.
package domain

import "time"

// CaptureChannel identifies how a lead entered the funnel.
type CaptureChannel string

const (
	ChannelPoster      CaptureChannel = "poster"
	ChannelPhone       CaptureChannel = "phone"
	ChannelLivestream  CaptureChannel = "livestream"
	ChannelSocialNote  CaptureChannel = "social_note"
	ChannelGroup       CaptureChannel = "group"
	ChannelPaymentCode CaptureChannel = "payment_code"
	ChannelAPI         CaptureChannel = "api"
	ChannelOrder       CaptureChannel = "order"
)

var knownChannels = map[CaptureChannel]struct{}{
	ChannelPoster:      {},
	ChannelPhone:       {},
	ChannelLivestream:  {},
	ChannelSocialNote:  {},
	ChannelGroup:       {},
	ChannelPaymentCode: {},
	ChannelAPI:         {},
	ChannelOrder:       {},
}

// IsKnownChannel reports whether channel is one of the supported capture channels.
func IsKnownChannel(channel CaptureChannel) bool {
	_, ok := knownChannels[channel]
	return ok
}

// LeadStatus is a soft lifecycle state. Leads are never hard-deleted;
// they only transition between statuses.
type LeadStatus string

const (
	StatusPending   LeadStatus = "pending"
	StatusContacted LeadStatus = "contacted"
	StatusConverted LeadStatus = "converted"
	StatusLost      LeadStatus = "lost"
)

// InteractionType classifies a behavioral event on a lead.
type InteractionType string

const (
	InteractionMessage  InteractionType = "message"
	InteractionPurchase InteractionType = "purchase"
	InteractionView     InteractionType = "view"
	InteractionClick    InteractionType = "click"
)

// Interaction is a single behavioral event. AmountCents is only meaningful
// for purchases and is zero otherwise.
type Interaction struct {
	Type        InteractionType `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	AmountCents int64           `json:"amountCents,omitempty"`
}

// Lead is a captured potential customer. The store is the exclusive owner
// of Lead values; other components work with snapshots and reference IDs.
type Lead struct {
	ID             string         `json:"id"`
	DisplayName    string         `json:"displayName"`
	ExternalHandle string         `json:"externalHandle"`
	Phone          string         `json:"phone,omitempty"`

	CaptureChannel     CaptureChannel `json:"captureChannel"`
	SourceDeviceID     string         `json:"sourceDeviceId,omitempty"`
	SourceAccountID    string         `json:"sourceAccountId,omitempty"`
	AssignedOperatorID string         `json:"assignedOperatorId,omitempty"`

	Status LeadStatus `json:"status"`
	Remark string     `json:"remark,omitempty"`

	// Device-sourced snapshot values, used only as opaque filter keys.
	FriendCount       int  `json:"friendCount"`
	Battery           int  `json:"battery"`
	HasActiveCampaign bool `json:"hasActiveCampaign"`

	Interactions []Interaction `json:"interactions,omitempty"`

	// Derived fields, recomputed rather than mutated in place.
	Score            RFMScore `json:"score"`
	Tags             []string `json:"tags,omitempty"`
	IsDuplicate      bool     `json:"isDuplicate"`
	MergedIdentities []string `json:"mergedIdentities,omitempty"`
	PoolIDs          []string `json:"poolIds,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// LastInteractionAt returns the timestamp of the most recent interaction
// and false when the lead has no history.
func (l *Lead) LastInteractionAt() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, it := range l.Interactions {
		if !found || it.Timestamp.After(latest) {
			latest = it.Timestamp
			found = true
		}
	}
	return latest, found
}

// InPool reports whether the lead is a member of the given pool.
func (l *Lead) InPool(poolID string) bool {
	for _, id := range l.PoolIDs {
		if id == poolID {
			return true
		}
	}
	return false
}

// HasTag reports whether the lead carries the given tag.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so snapshots never alias store-owned slices.
func (l Lead) Clone() Lead {
	out := l
	if l.Interactions != nil {
		out.Interactions = append([]Interaction(nil), l.Interactions...)
	}
	if l.Tags != nil {
		out.Tags = append([]string(nil), l.Tags...)
	}
	if l.MergedIdentities != nil {
		out.MergedIdentities = append([]string(nil), l.MergedIdentities...)
	}
	if l.PoolIDs != nil {
		out.PoolIDs = append([]string(nil), l.PoolIDs...)
	}
	return out
}
