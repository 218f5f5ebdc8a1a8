package dirent

import "time"

// fatEpoch is 1980-01-01 00:00:00 local time, the earliest representable
// FAT timestamp (spec section 4.6, teacher's fatEpoch).
var fatEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.Local)

// DateFromInt unpacks a FAT date field: bits 0-4 day, bits 5-8 month,
// bits 9-15 year-1980 (teacher's DateFromInt).
func DateFromInt(value uint16) time.Time {
	day := int(value & 0x1F)
	month := time.Month((value >> 5) & 0x0F)
	year := 1980 + int(value>>9)
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// EncodeDate packs a time.Time's date components into a FAT date field.
func EncodeDate(t time.Time) uint16 {
	year := t.Year() - 1980
	if year < 0 {
		year = 0
	}
	return uint16(t.Day()&0x1F) | uint16((int(t.Month())&0x0F))<<5 | uint16(year&0x7F)<<9
}

// TimestampFromParts combines a packed date, packed time, and optional
// hundredths-of-a-second field into a time.Time. hundredths ranges 0-199 and
// covers both the seconds-parity bit lost by the 2-second resolution of
// the packed time field and an extra digit of sub-second precision
// (teacher's TimestampFromParts).
func TimestampFromParts(datePart uint16, timePart uint16, hundredths uint8) time.Time {
	d := DateFromInt(datePart)
	seconds := int(timePart&0x1F) * 2
	nanoseconds := 0
	if hundredths > 0 {
		extraSeconds := int(hundredths) / 100
		remainder := int(hundredths) % 100
		seconds += extraSeconds
		nanoseconds = remainder * 10_000_000
	}
	minutes := int((timePart >> 5) & 0x3F)
	hours := int(timePart >> 11)
	return time.Date(d.Year(), d.Month(), d.Day(), hours, minutes, seconds, nanoseconds, time.Local)
}

// EncodeTime packs a time.Time's time-of-day into a FAT time field plus
// its hundredths-of-a-second remainder.
func EncodeTime(t time.Time) (packed uint16, hundredths uint8) {
	sec := t.Second()
	hundredths = uint8((sec%2)*100 + t.Nanosecond()/10_000_000)
	packed = uint16(sec/2) | uint16(t.Minute())<<5 | uint16(t.Hour())<<11
	return packed, hundredths
}
