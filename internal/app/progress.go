package app

import "github.com/gosuri/uiprogress"

// progressBar shows completed timesteps on the log writer. A nil bar is a
// no-op so callers need not check whether progress is enabled.
type progressBar struct {
	p   *uiprogress.Progress
	bar *uiprogress.Bar
}

func (a *App) newProgress(total int) *progressBar {
	if !a.config.Progress || total <= 0 {
		return nil
	}
	p := uiprogress.New()
	p.SetOut(a.progressW)
	bar := p.AddBar(total).AppendCompleted().PrependElapsed()
	p.Start()
	return &progressBar{p: p, bar: bar}
}

func (b *progressBar) incr() {
	if b != nil {
		b.bar.Incr()
	}
}

func (b *progressBar) stop() {
	if b != nil {
		b.p.Stop()
	}
}
