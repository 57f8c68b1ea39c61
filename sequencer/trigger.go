package sequencer

// Trigger is one "sound this lane now, for this long" decision
type Trigger struct {
	Lane         string
	SustainSteps int
	Mods         PitchModifiers
}

// LaneTrigger decides whether a lane fires at step. Discrete lanes fire on
// every active step with a length of one step. Sustain lanes fire only at the
// onset of a legato group, with the length of the whole run, so a run of L
// steps sounds once per pass through the pattern.
func LaneTrigger(kind LaneKind, steps []StepState, step int) (Trigger, bool) {
	n := len(steps)
	if n == 0 || step < 0 || step >= n {
		return Trigger{}, false
	}
	cur := steps[step]
	if !cur.On {
		return Trigger{}, false
	}
	if kind == Discrete {
		return Trigger{SustainSteps: 1}, true
	}
	if cur.GroupID == 0 {
		return Trigger{}, false
	}

	run := 1
	for run < n {
		next := steps[(step+run)%n]
		if !next.On || next.GroupID != cur.GroupID {
			break
		}
		run++
	}
	if run == n {
		// a group covering the whole loop has no natural onset
		if step != 0 {
			return Trigger{}, false
		}
		return Trigger{SustainSteps: n, Mods: cur.Mods}, true
	}

	prev := steps[(step-1+n)%n]
	if prev.On && prev.GroupID == cur.GroupID {
		return Trigger{}, false
	}
	return Trigger{SustainSteps: run, Mods: cur.Mods}, true
}

// Triggers runs LaneTrigger over every lane of a pattern set
func Triggers(set *PatternSet, lanes []Lane, step int) []Trigger {
	if set == nil {
		return nil
	}
	var out []Trigger
	for _, l := range lanes {
		steps, ok := set.lanes[l.Name]
		if !ok {
			continue
		}
		if trig, fire := LaneTrigger(l.Kind, steps, step); fire {
			trig.Lane = l.Name
			out = append(out, trig)
		}
	}
	return out
}
