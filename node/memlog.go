package node

import (
	"runtime"
	"time"

	"github.com/lunfardo314/notary/util"
	"github.com/spf13/viper"
)

const defaultMemLogPeriod = time.Minute

func (p *NotaryNode) startMemoryLogging() {
	if !viper.GetBool("logger.memlog.enable") {
		return
	}
	period := viper.GetDuration("logger.memlog.period")
	if period <= 0 {
		period = defaultMemLogPeriod
	}
	var mstats runtime.MemStats

	p.RepeatInBackground("memlog", period, func() bool {
		ready := "NOT READY"
		if p.IsReady() {
			ready = "READY"
		}
		runtime.ReadMemStats(&mstats)
		p.Log().Infof("%s, allocated %.1f MB, system %.1f MB, Num GC: %s, Goroutines: %d, up time: %v",
			ready,
			float32(mstats.Alloc*10/(1024*1024))/10,
			float32(mstats.Sys*10/(1024*1024))/10,
			util.GoThousands(mstats.NumGC),
			runtime.NumGoroutine(),
			p.UpTime().Round(time.Second),
		)
		return true
	})
}
