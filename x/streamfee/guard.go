package streamfee

// scopeLock rejects re-entrant mutation of the fee engine within a single
// call scope. The ABCI host serializes transactions, so the lock never
// blocks; it exists to turn an accidental re-entrant code path into a hard
// error instead of a double settlement.
type scopeLock struct {
	locked bool
}

func (l *scopeLock) acquire() error {
	if l.locked {
		return ErrReentrancy
	}
	l.locked = true
	return nil
}

func (l *scopeLock) release() {
	l.locked = false
}
