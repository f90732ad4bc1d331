package domain

// Clone returns a deep copy safe to hand to the call cache while the
// original keeps being mutated under the session lock.
func (s *Session) Clone() *Session {
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	if s.StateData.USSD != nil {
		d := *s.StateData.USSD
		d.Questions = append([]Question(nil), s.StateData.USSD.Questions...)
		if s.StateData.USSD.Selected != nil {
			q := *s.StateData.USSD.Selected
			d.Selected = &q
		}
		c.StateData.USSD = &d
	}
	if s.StateData.Voice != nil {
		d := *s.StateData.Voice
		d.Questions = append([]Question(nil), s.StateData.Voice.Questions...)
		d.Answered = append([]int64(nil), s.StateData.Voice.Answered...)
		d.Recordings = append([]string(nil), s.StateData.Voice.Recordings...)
		c.StateData.Voice = &d
	}
	return &c
}
