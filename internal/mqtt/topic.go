package mqtt

import "strings"

// SampleTopic {prefix}/{patient_id}/{kind}
func SampleTopic(prefix, patientID, kind string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + patientID + "/" + kind
}

// SampleFilter subscription filter matching every SampleTopic under prefix.
func SampleFilter(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/+/+"
}

// ParseSampleTopic splits a SampleTopic back into patient id and kind.
func ParseSampleTopic(prefix, topic string) (patientID, kind string, ok bool) {
	rest, found := strings.CutPrefix(topic, strings.TrimSuffix(prefix, "/")+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
