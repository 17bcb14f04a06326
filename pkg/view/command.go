package view

// Command is the semantic surface the excluded interaction layer maps
// device events onto. The bindings themselves (which key, which wheel)
// live outside the core; only the meanings are specified here.
// Commands that target the mask store (undo, lock toggle,
// label-select-by-number) are dispatched by the controller directly to
// the store and do not appear in this enum.
type Command int

const (
	// CmdSliceUp and CmdSliceDown scroll through slices.
	CmdSliceUp Command = iota
	CmdSliceDown

	// CmdTimeUp and CmdTimeDown step the time cursor. The fast
	// modifier multiplies the step by 10.
	CmdTimeUp
	CmdTimeDown

	// CmdVolumeUp and CmdVolumeDown step the volume cursor, also
	// honoring the fast modifier.
	CmdVolumeUp
	CmdVolumeDown

	// CmdToggleMask toggles overlay visibility.
	CmdToggleMask

	// CmdToggleMontage toggles montage mode.
	CmdToggleMontage
)

// Apply executes a semantic command against the state. fast multiplies
// time and volume steps by 10; slice scrolling always steps by one.
// Every cursor change clamps, so commands are total: they never fail,
// they saturate at the extents.
func (st *State) Apply(cmd Command, fast bool) {
	step := 1
	if fast {
		step = 10
	}

	switch cmd {
	case CmdSliceUp:
		st.SetSlice(st.Slice + 1)
	case CmdSliceDown:
		st.SetSlice(st.Slice - 1)
	case CmdTimeUp:
		st.SetTime(st.Time + step)
	case CmdTimeDown:
		st.SetTime(st.Time - step)
	case CmdVolumeUp:
		st.SetVolume(st.Volume + step)
	case CmdVolumeDown:
		st.SetVolume(st.Volume - step)
	case CmdToggleMask:
		st.MaskVisible = !st.MaskVisible
		st.notify()
	case CmdToggleMontage:
		st.Montage = !st.Montage
		st.notify()
	}
}
