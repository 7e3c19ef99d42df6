package session

// ReadFileAsync implements lua.FileService. The read counts as pending work
// until its completion is handled on the session loop or dropped from the
// event queue.
func (s *Session) ReadFileAsync(path, encoding string, cb func(err error, contents string)) {
	s.inflight.Add(1)
	s.files.ReadFileAsync(path, encoding, cb)
}
