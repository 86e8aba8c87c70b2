// Package observation records which observable properties a computation reads
// and arranges a single change notification for them.
//
// A computation run under WithTracking reports every property read made on its
// goroutine. Once it returns, a shared callback is registered on each subject it
// touched. The first mutation of any of those properties invokes onChange
// exactly once and unregisters the callback everywhere.
//
//	name := observation.NewProperty(reg, "ada")
//
//	greeting := observation.WithTracking(func() string {
//		return "hello " + name.Get()
//	}, func() {
//		fmt.Println("greeting is stale")
//	})
package observation

import "github.com/AnatoleLucet/observation/internal"

type (
	// SubjectID identifies one observed subject instance.
	SubjectID = internal.SubjectID

	// Key identifies one trackable property of a subject.
	Key = internal.Key

	// Token is the handle a subject returns for a one-shot registration.
	Token = internal.Token

	// KeySet is a set of property keys.
	KeySet = internal.KeySet

	// Subject is implemented by anything whose property reads can be tracked.
	// Implementations report reads with RecordRead and must invoke registered
	// callbacks without holding locks that Unregister needs.
	Subject = internal.Subject

	// AccessList is the record of subjects and keys read by a computation.
	AccessList = internal.AccessList

	// AccessEntry holds the keys read on one subject.
	AccessEntry = internal.AccessEntry
)

// NewSubjectID returns a process-wide unique subject id.
func NewSubjectID() SubjectID { return internal.NewSubjectID() }

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...Key) KeySet { return internal.NewKeySet(keys...) }

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

// WithTracking runs fn, records the properties it reads, and calls onChange the
// first time any of them changes. onChange runs at most once, on whichever
// goroutine performed the mutation.
func WithTracking[T any](fn func() T, onChange func()) T {
	var result T
	Default().Run(func() { result = fn() }, onChange)
	return result
}

// WithTrackingErr is WithTracking for computations that can fail.
// Reads made before the failure are still tracked and the error is returned unchanged.
func WithTrackingErr[T any](fn func() (T, error), onChange func()) (T, error) {
	var result T
	err := Default().RunErr(func() (err error) {
		result, err = fn()
		return err
	}, onChange)
	return result, err
}

// Capture runs fn and returns the properties it read without installing anything.
// The list can later be passed to InstallTracking.
func Capture[T any](fn func() T) (T, *AccessList) {
	var result T
	list := capture(func() { result = fn() })
	return result, list
}

func capture(fn func()) (list *AccessList) {
	h := internal.Activate()
	defer func() { list = internal.Deactivate(h) }()

	fn()
	return list
}

// InstallTracking arranges for onChange to run the first time any property in
// list changes. Each call installs an independent notification.
func InstallTracking(list *AccessList, onChange func()) {
	Default().Install(list, onChange)
}

// Untrack runs fn without recording any of its reads.
func Untrack[T any](fn func() T) T {
	h := internal.ActivateUntracked()
	defer internal.Deactivate(h)

	return fn()
}

// RecordRead reports a read of key on subject. Subjects call it from their
// property accessors. It does nothing unless the current goroutine is tracking.
func RecordRead(subject Subject, key Key) {
	internal.RecordRead(subject, key)
}

// IsTracking reports whether reads on the current goroutine are being recorded.
func IsTracking() bool {
	return internal.Tracking()
}
