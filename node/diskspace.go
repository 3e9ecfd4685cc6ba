package node

import (
	"time"

	"github.com/lunfardo314/notary/util"
	"github.com/lunfardo314/notary/util/diskusage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

const (
	diskSpaceCheckPeriod   = time.Minute
	defaultMinFreeDiskMB   = 1024
	diskSpaceWorkProcessID = "disk_space"
)

// startDiskSpaceMonitoring periodically checks space available for the database and warns when it is low
func (p *NotaryNode) startDiskSpaceMonitoring(dir string) {
	minFreeMB := viper.GetUint64("db.min_free_mb")
	if minFreeMB == 0 {
		minFreeMB = defaultMinFreeDiskMB
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notary_db_disk_available_bytes",
		Help: "disk space available for the database",
	})
	p.MetricsRegistry().MustRegister(gauge)

	check := func() bool {
		usage, err := diskusage.Get(dir)
		if err != nil {
			p.Log().Warnf("[%s] can't get disk usage of '%s': %v. Disk space monitoring stopped", diskSpaceWorkProcessID, dir, err)
			return false
		}
		gauge.Set(float64(usage.Available))
		if usage.AvailableMB() < minFreeMB {
			p.Log().Warnf("[%s] low disk space for the database '%s': %s MB available, minimum is %s MB",
				diskSpaceWorkProcessID, dir, util.GoThousands(usage.AvailableMB()), util.GoThousands(minFreeMB))
		}
		return true
	}
	if check() {
		p.RepeatInBackground(diskSpaceWorkProcessID, diskSpaceCheckPeriod, check)
	}
}
