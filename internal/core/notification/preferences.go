package notification

// QuietHours suppresses delivery between Start and End (local "HH:MM").
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Preferences holds per-channel and per-type delivery settings.
type Preferences struct {
	Email      bool          `json:"email"`
	Push       bool          `json:"push"`
	Telegram   bool          `json:"telegram"`
	Types      map[Type]bool `json:"types"`
	QuietHours QuietHours    `json:"quietHours"`
}

// DefaultPreferences returns the settings used whenever nothing is stored:
// every channel and type enabled except marketing, quiet hours off.
func DefaultPreferences() Preferences {
	types := make(map[Type]bool, len(KnownTypes()))
	for _, t := range KnownTypes() {
		types[t] = t != TypeMarketing
	}

	return Preferences{
		Email:    true,
		Push:     true,
		Telegram: true,
		Types:    types,
		QuietHours: QuietHours{
			Enabled: false,
			Start:   "22:00",
			End:     "08:00",
		},
	}
}

// Clone returns a copy of p that shares no maps with it.
func (p Preferences) Clone() Preferences {
	if p.Types != nil {
		types := make(map[Type]bool, len(p.Types))
		for k, v := range p.Types {
			types[k] = v
		}
		p.Types = types
	}
	return p
}

// Allows reports whether notifications of type t are opted in. Subtypes fall
// back to their category; types with no entry are allowed.
func (p Preferences) Allows(t Type) bool {
	if v, ok := p.Types[t]; ok {
		return v
	}
	if v, ok := p.Types[t.Category()]; ok {
		return v
	}
	return true
}

// QuietHoursPatch is the partial form of QuietHours.
type QuietHoursPatch struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Start   *string `json:"start,omitempty" validate:"omitempty,hhmm"`
	End     *string `json:"end,omitempty" validate:"omitempty,hhmm"`
}

// PreferencesPatch is a partial update. Nil fields are left unchanged; Types
// entries are merged key by key.
type PreferencesPatch struct {
	Email      *bool            `json:"email,omitempty"`
	Push       *bool            `json:"push,omitempty"`
	Telegram   *bool            `json:"telegram,omitempty"`
	Types      map[Type]bool    `json:"types,omitempty"`
	QuietHours *QuietHoursPatch `json:"quietHours,omitempty" validate:"omitempty"`
}

// Validate checks quiet-hours formats. Other fields cannot be malformed.
func (p PreferencesPatch) Validate() error {
	return validateStruct(p)
}

// IsEmpty reports whether the patch changes nothing.
func (p PreferencesPatch) IsEmpty() bool {
	return p.Email == nil && p.Push == nil && p.Telegram == nil &&
		len(p.Types) == 0 && p.QuietHours == nil
}

// Merge applies patch over base and returns the result. base is not modified.
func Merge(base Preferences, patch PreferencesPatch) Preferences {
	out := base.Clone()
	if out.Types == nil {
		out.Types = make(map[Type]bool, len(patch.Types))
	}

	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.Push != nil {
		out.Push = *patch.Push
	}
	if patch.Telegram != nil {
		out.Telegram = *patch.Telegram
	}
	for t, enabled := range patch.Types {
		out.Types[t] = enabled
	}
	if qh := patch.QuietHours; qh != nil {
		if qh.Enabled != nil {
			out.QuietHours.Enabled = *qh.Enabled
		}
		if qh.Start != nil {
			out.QuietHours.Start = *qh.Start
		}
		if qh.End != nil {
			out.QuietHours.End = *qh.End
		}
	}

	return out
}

// Resolve layers stored preferences over the defaults: keys missing from the
// stored value (older payloads, new categories) take their default.
func Resolve(stored Preferences) Preferences {
	out := DefaultPreferences()
	out.Email = stored.Email
	out.Push = stored.Push
	out.Telegram = stored.Telegram
	for t, enabled := range stored.Types {
		out.Types[t] = enabled
	}
	if stored.QuietHours.Start != "" || stored.QuietHours.End != "" || stored.QuietHours.Enabled {
		out.QuietHours = stored.QuietHours
	}
	return out
}
