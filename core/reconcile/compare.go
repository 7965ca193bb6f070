package reconcile

// Equal reports whether a normalized local value and a normalized remote value
// are equal for the given kind.
//
// Empty vs Empty is equal. Empty vs non-Empty is unequal in either direction;
// that case is not a conflict, it routes to gap-filling. Invalid values
// degrade to Empty here; the caller is responsible for flagging them.
func Equal(local, remote Value, kind Kind) bool {
	localEmpty := local.State == StateEmpty || local.State == StateInvalid
	remoteEmpty := remote.State == StateEmpty || remote.State == StateInvalid

	if localEmpty && remoteEmpty {
		return true
	}
	if localEmpty != remoteEmpty {
		return false
	}

	switch kind {
	case KindDate:
		// Calendar dates only; time-of-day was already discarded.
		return local.Date.Equal(remote.Date)
	default:
		return local.Text == remote.Text
	}
}
