package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/** @brief A general job that does not have any specific thread requirements. */
	JobTypeGeneral JobType = 0x02
	/**
	 * @brief A job that creates device objects (layouts, pipelines, samplers).
	 * The device is safe for concurrent use, so these run on any worker.
	 */
	JobTypeDeviceObject JobType = 0x08
)

func (t JobType) String() string {
	switch t {
	case JobTypeGeneral:
		return "general"
	case JobTypeDeviceObject:
		return "device-object"
	}
	return "unknown"
}

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	Name string
	Type JobType
	/** @brief Invoked when the job starts. Required. */
	OnStart func() error
	/** @brief Invoked when OnStart succeeds. Optional. */
	OnComplete func()
	/** @brief Invoked with the error returned by OnStart. Optional. */
	OnFailure func(err error)
	/** @brief Invoked last, whatever the outcome. Optional. */
	OnCompletionCallback func()
}
