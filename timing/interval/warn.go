package interval

import "log"

type warnings map[string]bool

func (w warnings) once(key, format string, args ...any) {
	if w[key] {
		return
	}
	w[key] = true
	log.Printf("interval timer: "+format, args...)
}
