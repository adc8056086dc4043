// Package state holds the explicit application state of an analysis
// session: market inputs, strategy parameters, leg sets and display
// choices. It is loaded and saved through an injected store.
package state

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"txo-strategist/internal/calendar"
	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/models"
	"txo-strategist/internal/payoff"
	"txo-strategist/internal/strategy"
)

// FilterAll disables the expiry filter.
const FilterAll = "ALL"

// DefaultStrategyID is selected in a fresh state.
const DefaultStrategyID = "ironCondor"

// StrikeStep is the TXO strike interval. Strike shifts are rounded to it.
const StrikeStep = 50

// strikeFields are the closed-form inputs that move with the underlying.
var strikeFields = []string{
	"strike", "lowerStrike", "higherStrike", "middleStrike",
	"putK1", "putK2", "callK3", "callK4",
	"lowerPutK", "centerStrike", "higherCallK",
}

// Defaults are the market inputs a fresh or reset state starts from.
type Defaults struct {
	Spot                 float64
	RiskFreeRatePercent  float64
	VolatilityPercent    float64
	VolCorrectionPercent float64
	Mode                 models.Mode
	Values               map[string]float64
}

// DefaultDefaults returns the stock TXO session inputs with every closed
// form input from registry at its default.
func DefaultDefaults(registry *strategy.Registry) Defaults {
	d := Defaults{
		Spot:                 32000,
		RiskFreeRatePercent:  2.0,
		VolatilityPercent:    16,
		VolCorrectionPercent: 50,
		Mode:                 models.ModeExpiry,
	}
	if registry != nil {
		d.Values = strategy.DefaultValues(registry.List())
	}
	return d
}

// Inputs are the numeric parameters of the session.
type Inputs struct {
	Spot                 float64            `json:"spot"`
	RiskFreeRatePercent  float64            `json:"risk_free_rate_percent"`
	VolatilityPercent    float64            `json:"volatility_percent"`
	VolCorrectionPercent float64            `json:"vol_correction_percent"`
	Values               map[string]float64 `json:"values"`
}

// AppState is the whole persisted session.
type AppState struct {
	Inputs           Inputs                  `json:"inputs"`
	LegSets          map[string][]models.Leg `json:"leg_sets"`
	SelectedStrategy string                  `json:"selected_strategy"`
	ExpiryDate       string                  `json:"expiry_date"`
	Mode             models.Mode             `json:"mode"`
	FilterExpiry     string                  `json:"filter_expiry"`
	Benchmark        []payoff.Point          `json:"benchmark,omitempty"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// Default builds a fresh state. The custom leg set starts with one long
// at-the-money call; the simulation sets start empty.
func Default(d Defaults, cal *calendar.Calendar, now time.Time) *AppState {
	s := &AppState{
		LegSets:          make(map[string][]models.Leg, len(strategy.PortfolioIDs)),
		SelectedStrategy: DefaultStrategyID,
		FilterExpiry:     FilterAll,
		UpdatedAt:        now,
	}
	s.applyDefaults(d, cal, now)
	for _, id := range strategy.PortfolioIDs {
		s.LegSets[id] = []models.Leg{}
	}
	s.LegSets[strategy.CustomID] = []models.Leg{{
		ID:       uuid.NewString(),
		Action:   models.Buy,
		Type:     models.Call,
		Strike:   d.Spot,
		Premium:  350,
		Quantity: 1,
	}}
	return s
}

func (s *AppState) applyDefaults(d Defaults, cal *calendar.Calendar, now time.Time) {
	values := make(map[string]float64, len(d.Values))
	for k, v := range d.Values {
		values[k] = v
	}
	s.Inputs = Inputs{
		Spot:                 d.Spot,
		RiskFreeRatePercent:  d.RiskFreeRatePercent,
		VolatilityPercent:    d.VolatilityPercent,
		VolCorrectionPercent: d.VolCorrectionPercent,
		Values:               values,
	}
	s.Mode = d.Mode
	if s.Mode == "" {
		s.Mode = models.ModeExpiry
	}
	s.ExpiryDate = cal.DefaultExpiryDate(now)
}

// Reset restores the default inputs and expiry and selects the custom
// portfolio. Leg sets are kept.
func (s *AppState) Reset(d Defaults, cal *calendar.Calendar, now time.Time) {
	s.applyDefaults(d, cal, now)
	s.SelectedStrategy = strategy.CustomID
	s.FilterExpiry = FilterAll
	s.UpdatedAt = now
}

// Normalize fills fields missing from an older or hand-edited state.
func (s *AppState) Normalize(d Defaults, cal *calendar.Calendar, now time.Time) {
	if s.LegSets == nil {
		s.LegSets = make(map[string][]models.Leg)
	}
	for _, id := range strategy.PortfolioIDs {
		if s.LegSets[id] == nil {
			s.LegSets[id] = []models.Leg{}
		}
	}
	if s.Inputs.Values == nil {
		s.Inputs.Values = make(map[string]float64)
	}
	for k, v := range d.Values {
		if _, ok := s.Inputs.Values[k]; !ok {
			s.Inputs.Values[k] = v
		}
	}
	if s.SelectedStrategy == "" {
		s.SelectedStrategy = DefaultStrategyID
	}
	if s.FilterExpiry == "" {
		s.FilterExpiry = FilterAll
	}
	if s.Mode == "" {
		s.Mode = models.ModeExpiry
	}
	if s.ExpiryDate == "" {
		s.ExpiryDate = cal.DefaultExpiryDate(now)
	}
}

// Snapshot returns the market inputs used for pricing.
func (s *AppState) Snapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		Spot:                s.Inputs.Spot,
		RiskFreeRatePercent: s.Inputs.RiskFreeRatePercent,
		VolatilityPercent:   s.Inputs.VolatilityPercent,
	}
}

// ShiftStrikes moves every strike input by diff rounded to the strike
// step and returns the applied shift. Leg sets are never touched.
func (s *AppState) ShiftStrikes(diff float64) float64 {
	shift := math.Round(diff/StrikeStep) * StrikeStep
	if shift == 0 {
		return 0
	}
	for _, k := range strikeFields {
		if v, ok := s.Inputs.Values[k]; ok {
			s.Inputs.Values[k] = v + shift
		}
	}
	return shift
}

// Quote is a market update applied to the state.
type Quote struct {
	Spot                float64
	VolatilityPercent   float64
	RiskFreeRatePercent float64
}

// ApplyQuote stores a new quote. A full update also re-centres the strike
// inputs on the new spot and resets the expiry to the default. It returns
// the strike shift that was applied.
func (s *AppState) ApplyQuote(q Quote, full bool, cal *calendar.Calendar, now time.Time) float64 {
	var shift float64
	if full && s.Inputs.Spot > 0 && q.Spot > 0 {
		shift = s.ShiftStrikes(q.Spot - s.Inputs.Spot)
	}
	if q.Spot > 0 {
		s.Inputs.Spot = q.Spot
	}
	if q.VolatilityPercent > 0 {
		s.Inputs.VolatilityPercent = q.VolatilityPercent
	}
	if q.RiskFreeRatePercent > 0 {
		s.Inputs.RiskFreeRatePercent = q.RiskFreeRatePercent
	}
	if full {
		s.ExpiryDate = cal.DefaultExpiryDate(now)
	}
	s.UpdatedAt = now
	return shift
}

// RollExpiry replaces an expiry date whose 13:45 settlement has passed
// with the default expiry. It reports whether the date changed.
func (s *AppState) RollExpiry(cal *calendar.Calendar, now time.Time) bool {
	if cal.DaysUntilExpiry(models.ExpiryRef(s.ExpiryDate), now) >= 0 {
		return false
	}
	next := cal.DefaultExpiryDate(now)
	if next == s.ExpiryDate {
		return false
	}
	s.ExpiryDate = next
	return true
}

// Select makes id the active strategy.
func (s *AppState) Select(registry *strategy.Registry, id string) error {
	if _, ok := registry.Get(id); !ok {
		return apperrors.Wrapf(apperrors.ErrStrategyNotFound, "select %q", id)
	}
	s.SelectedStrategy = id
	return nil
}

// SetValue sets one closed-form input.
func (s *AppState) SetValue(key string, v float64) {
	if s.Inputs.Values == nil {
		s.Inputs.Values = make(map[string]float64)
	}
	s.Inputs.Values[key] = v
}

// ActiveLegsKey returns the leg set the selected strategy reads, or ""
// when it is a closed-form strategy.
func (s *AppState) ActiveLegsKey() string {
	for _, id := range strategy.PortfolioIDs {
		if id == s.SelectedStrategy {
			return id
		}
	}
	return ""
}

// Legs returns a copy of the named leg set.
func (s *AppState) Legs(set string) []models.Leg {
	src := s.LegSets[set]
	out := make([]models.Leg, len(src))
	copy(out, src)
	return out
}

// FilteredLegs returns the active leg set restricted to the filtered
// expiry. Legs without their own expiry match the global expiry date.
func (s *AppState) FilteredLegs() []models.Leg {
	key := s.ActiveLegsKey()
	if key == "" {
		return nil
	}
	legs := s.Legs(key)
	if s.FilterExpiry == "" || s.FilterExpiry == FilterAll {
		return legs
	}
	out := legs[:0]
	for _, l := range legs {
		ref := string(l.Expiry)
		if ref == "" {
			ref = s.ExpiryDate
		}
		if ref == s.FilterExpiry {
			out = append(out, l)
		}
	}
	return out
}

// EffectiveExpiry is the expiry used for the shared time to expiry: the
// filtered expiry when one is set, the global expiry otherwise.
func (s *AppState) EffectiveExpiry() models.ExpiryRef {
	if s.FilterExpiry != "" && s.FilterExpiry != FilterAll {
		return models.ExpiryRef(s.FilterExpiry)
	}
	return models.ExpiryRef(s.ExpiryDate)
}

// AvailableExpiries lists the distinct expiries of the active leg set,
// nearest first.
func (s *AppState) AvailableExpiries(cal *calendar.Calendar, now time.Time) []models.ExpiryRef {
	key := s.ActiveLegsKey()
	if key == "" {
		return []models.ExpiryRef{}
	}
	refs := make([]models.ExpiryRef, 0, len(s.LegSets[key]))
	for _, l := range s.LegSets[key] {
		ref := l.Expiry
		if ref == "" {
			ref = models.ExpiryRef(s.ExpiryDate)
		}
		refs = append(refs, ref)
	}
	return cal.SortExpiries(refs, now)
}

// AddLeg validates leg and appends it to a leg set, assigning an id when
// it has none.
func (s *AppState) AddLeg(set string, leg models.Leg) (models.Leg, error) {
	if !isLegSet(set) {
		return models.Leg{}, apperrors.Wrapf(apperrors.ErrStrategyNotFound, "leg set %q", set)
	}
	if err := ValidateLeg(leg); err != nil {
		return models.Leg{}, err
	}
	if leg.ID == "" {
		leg.ID = uuid.NewString()
	}
	s.LegSets[set] = append(s.LegSets[set], leg)
	return leg, nil
}

// RemoveLeg deletes the leg with id from a leg set.
func (s *AppState) RemoveLeg(set, id string) error {
	legs := s.LegSets[set]
	for i, l := range legs {
		if l.ID == id {
			s.LegSets[set] = append(legs[:i:i], legs[i+1:]...)
			return nil
		}
	}
	return apperrors.Wrapf(apperrors.ErrLegNotFound, "leg %q in %q", id, set)
}

// ClearLegs empties a leg set.
func (s *AppState) ClearLegs(set string) error {
	if !isLegSet(set) {
		return apperrors.Wrapf(apperrors.ErrStrategyNotFound, "leg set %q", set)
	}
	s.LegSets[set] = []models.Leg{}
	return nil
}

// LegSetNames returns the leg set names in display order.
func (s *AppState) LegSetNames() []string {
	names := make([]string, 0, len(s.LegSets))
	for k := range s.LegSets {
		names = append(names, k)
	}
	rank := make(map[string]int, len(strategy.PortfolioIDs))
	for i, id := range strategy.PortfolioIDs {
		rank[id] = i + 1
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank[names[i]], rank[names[j]]
		if ri != rj {
			if ri == 0 || rj == 0 {
				return rj == 0
			}
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

// Parameters builds strategy parameters from the state.
func (s *AppState) Parameters(now time.Time) strategy.Parameters {
	return strategy.Parameters{
		Values:        s.Inputs.Values,
		Legs:          s.FilteredLegs(),
		Mode:          s.Mode,
		Now:           now,
		DefaultExpiry: models.ExpiryRef(s.ExpiryDate),
	}
}

// ValidateLeg checks a user-entered leg.
func ValidateLeg(l models.Leg) error {
	switch {
	case l.Action != models.Buy && l.Action != models.Sell:
		return invalidLeg("action", l.Action, "must be buy or sell")
	case l.Type != models.Call && l.Type != models.Put:
		return invalidLeg("type", l.Type, "must be call or put")
	case !(l.Strike > 0):
		return invalidLeg("strike", l.Strike, "must be positive")
	case !(l.Quantity > 0):
		return invalidLeg("quantity", l.Quantity, "must be positive")
	case !(l.Premium >= 0):
		return invalidLeg("premium", l.Premium, "must not be negative")
	}
	return nil
}

// invalidLeg matches both ErrInvalidLeg and ErrInputValidation.
func invalidLeg(field string, value interface{}, msg string) error {
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidLeg, apperrors.NewValidationError(field, value, msg))
}

func isLegSet(name string) bool {
	for _, id := range strategy.PortfolioIDs {
		if id == name {
			return true
		}
	}
	return false
}
