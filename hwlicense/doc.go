// Package hwlicense validates license keys that bind to a single machine.
//
// Install with:
//
//	go get github.com/CloudNativeWorks/hwlicense/hwlicense
//
// A license record is either permanent (duration_days >= 9000) or a trial
// whose window starts on the first successful validation. The first machine
// to present an unbound key claims it; every other machine is rejected.
//
// # Server side
//
// The Validator runs the decision against a recordstore.RecordStore:
//
//	store, _ := recordstore.NewMongoStore(ctx, client.Database("license_db"))
//	v := hwlicense.NewValidator(store)
//	out, err := v.Validate(ctx, key, hwid, time.Now())
//
// Rejections are ErrLicenseNotFound, ErrHardwareMismatch and
// *ExpiredError (which matches ErrLicenseExpired).
//
// # Client side
//
//	client := hwlicense.NewOnlineClient("https://license.example.com")
//	resp, err := client.Validate(ctx, hwlicense.ValidateRequest{Key: "XXXX-YYYY"})
//
// The client sends GenerateFingerprint as the hardware id unless one is given.
package hwlicense
