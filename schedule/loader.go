package schedule

// LoadJobs registra os jobs no Manager com o mesmo executor. Se algum falhar,
// os já registrados nesta chamada são removidos.
func LoadJobs(m *Manager, jobs []Job, run RunFunc) error {
	var added []string
	for _, j := range jobs {
		if err := m.Add(j, run); err != nil {
			for _, id := range added {
				m.Remove(id)
			}
			return err
		}
		added = append(added, j.ID)
		m.log.Info("job agendado", "job", j.ID, "at", j.At, "action", j.Action, "grace", j.Grace)
	}
	return nil
}
