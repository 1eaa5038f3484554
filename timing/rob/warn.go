package rob

import "log"

const rsFullWarnCycles = 1_000_000

// warnings logs each accuracy warning once per timer.
type warnings map[string]bool

func (w *warnings) once(key, format string, args ...any) {
	if *w == nil {
		*w = warnings{}
	}
	if (*w)[key] {
		return
	}
	(*w)[key] = true
	log.Printf("rob timer: "+format, args...)
}

func (t *Timer) checkRSFull() {
	s := &t.stats
	if s.Cycles < rsFullWarnCycles || s.RSFullCycles < s.Cycles/2 {
		return
	}
	t.warn.once("rs-full",
		"%d of %d cycles stalled on a full reservation station, consider raising rs_entries",
		s.RSFullCycles, s.Cycles)
}
