package domain

// DenialReason explains why an entitlement check failed
type DenialReason string

const (
	ReasonRequiresProPlan        DenialReason = "RequiresProPlan"
	ReasonRequiresLinkedIdentity DenialReason = "RequiresLinkedIdentity"
)

// Decision is the outcome of an entitlement check. Reason is set only when denied.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
}

// Allow returns an allowing decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given reason
func Deny(reason DenialReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err converts a denial into a *ForbiddenError, or nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ForbiddenError{Reason: d.Reason}
}

// Evaluator decides whether an identity may request a media target
type Evaluator interface {
	Evaluate(identity UserIdentity, target MediaTarget) Decision
}

// PremiumQualities are the top two tiers per YouTube media type
var PremiumQualities = map[MediaType][]Quality{
	MediaVideo: {Quality4K, Quality1440p},
	MediaAudio: {Quality320kbps, Quality256kbps},
}

// PolicyEvaluator implements the closed entitlement policy table
type PolicyEvaluator struct{}

// NewPolicyEvaluator creates the default evaluator
func NewPolicyEvaluator() PolicyEvaluator {
	return PolicyEvaluator{}
}

// Evaluate is pure and total. Unknown platforms, media types or qualities are
// denied rather than allowed.
func (PolicyEvaluator) Evaluate(identity UserIdentity, target MediaTarget) Decision {
	switch target.Platform {
	case PlatformYouTube:
		return evaluateYouTube(identity, target)
	case PlatformInstagram:
		return evaluateInstagram(identity, target)
	}
	return Deny(ReasonRequiresProPlan)
}

func evaluateYouTube(identity UserIdentity, target MediaTarget) Decision {
	var catalogue []Quality
	switch target.MediaType {
	case MediaVideo:
		catalogue = VideoQualities
	case MediaAudio:
		catalogue = AudioQualities
	default:
		return Deny(ReasonRequiresProPlan)
	}

	// Unknown tags are treated as premium
	premium := !containsQuality(catalogue, target.Quality) || IsPremiumQuality(target.MediaType, target.Quality)
	if premium && identity.PlanTier != PlanPro {
		return Deny(ReasonRequiresProPlan)
	}
	return Allow()
}

func evaluateInstagram(identity UserIdentity, target MediaTarget) Decision {
	switch target.MediaType {
	case MediaPost, MediaReel:
		return Allow()
	case MediaStory:
		if identity.HasLinkedIdentity(LinkedInstagram) {
			return Allow()
		}
		return Deny(ReasonRequiresLinkedIdentity)
	}
	return Deny(ReasonRequiresLinkedIdentity)
}

// IsPremiumQuality checks if a quality belongs to the pro-only tiers of a media type
func IsPremiumQuality(mediaType MediaType, quality Quality) bool {
	return containsQuality(PremiumQualities[mediaType], quality)
}

// AvailableQualities lists the qualities a plan may request for a YouTube media type
func AvailableQualities(tier PlanTier, mediaType MediaType) []Quality {
	var catalogue []Quality
	switch mediaType {
	case MediaVideo:
		catalogue = VideoQualities
	case MediaAudio:
		catalogue = AudioQualities
	default:
		return nil
	}
	if tier == PlanPro {
		return append([]Quality(nil), catalogue...)
	}

	available := make([]Quality, 0, len(catalogue))
	for _, q := range catalogue {
		if !IsPremiumQuality(mediaType, q) {
			available = append(available, q)
		}
	}
	return available
}
