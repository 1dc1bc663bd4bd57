package core

func StringPtr(s string) *string { return &s }

func Int64Ptr(i int64) *int64 { return &i }
