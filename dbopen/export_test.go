package dbopen

var RetryBusyForTest = retryBusy
