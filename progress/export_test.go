package progress

var Stamp = stamp
