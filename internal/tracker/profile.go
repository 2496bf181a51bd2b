package tracker

import (
	"fmt"
	"strconv"
	"strings"
)

// Event and sample flags pushed by the fixed configuration block.
const (
	FileEventFilter = "LEFT,RIGHT,FIXATION,SACCADE,BLINK,MESSAGE,BUTTON,INPUT"
	LinkEventFilter = "LEFT,RIGHT,FIXATION,SACCADE,BLINK,BUTTON,FIXUPDATE,INPUT"

	FileSampleDataV4 = "LEFT,RIGHT,GAZE,HREF,RAW,AREA,HTARGET,GAZERES,BUTTON,STATUS,INPUT"
	LinkSampleDataV4 = "LEFT,RIGHT,GAZE,GAZERES,AREA,HTARGET,STATUS,INPUT"
	FileSampleData   = "LEFT,RIGHT,GAZE,HREF,RAW,AREA,GAZERES,BUTTON,STATUS,INPUT"
	LinkSampleData   = "LEFT,RIGHT,GAZE,GAZERES,AREA,STATUS,INPUT"
)

// RecordingProfile holds the tunable part of the recording configuration.
type RecordingProfile struct {
	SampleRate                   int
	CalibrationType              string
	SaccadeVelocityThreshold     int
	SaccadeAccelerationThreshold int
}

// DefaultRecordingProfile returns the values used by the task.
func DefaultRecordingProfile() RecordingProfile {
	return RecordingProfile{
		SampleRate:                   1000,
		CalibrationType:              "HV9",
		SaccadeVelocityThreshold:     35,
		SaccadeAccelerationThreshold: 9500,
	}
}

// ParseMajorVersion extracts the major version from a host version string.
// The version is the last whitespace-separated token, e.g. "EYELINK CL 5.12" -> 5.
func ParseMajorVersion(versionString string) (int, error) {
	fields := strings.Fields(versionString)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty tracker version string")
	}

	last := fields[len(fields)-1]
	major := strings.SplitN(last, ".", 2)[0]

	v, err := strconv.Atoi(major)
	if err != nil {
		return 0, fmt.Errorf("invalid tracker version %q: %w", versionString, err)
	}
	return v, nil
}

// Commands returns the configuration commands for a host of the given major
// version, in the order they are sent.
func (p RecordingProfile) Commands(version int) []string {
	fileSamples, linkSamples := FileSampleData, LinkSampleData
	if version > 3 {
		fileSamples, linkSamples = FileSampleDataV4, LinkSampleDataV4
	}

	cmds := []string{
		"file_event_filter = " + FileEventFilter,
		"file_sample_data = " + fileSamples,
		"link_event_filter = " + LinkEventFilter,
		"link_sample_data = " + linkSamples,
	}

	// Older hosts have a fixed sample rate
	if version > 2 {
		cmds = append(cmds, fmt.Sprintf("sample_rate = %d", p.SampleRate))
	}

	cmds = append(cmds,
		"calibration_type = "+p.CalibrationType,
		fmt.Sprintf("saccade_velocity_threshold = %d", p.SaccadeVelocityThreshold),
		fmt.Sprintf("saccade_acceleration_threshold = %d", p.SaccadeAccelerationThreshold),
	)

	return cmds
}
