package event

import "encoding"

// Field is one of the event data field names the extractors know about.
type Field uint8

// Known event data fields. FieldUnknown is the zero value and never matches a
// parsed name.
const (
	FieldUnknown Field = iota
	SubjectUserSid
	SubjectUserName
	SubjectDomainName
	SubjectLogonId
	TargetUserSid
	TargetUserName
	TargetDomainName
	TargetLogonId
	LogonType
	LogonProcessName
	AuthenticationPackageName
	WorkstationName
	LogonGuid
	TransmittedServices
	LmPackageName
	KeyLength
	ProcessId
	ProcessName
	IpAddress
	IpPort
	ImpersonationLevel
	RestrictedAdminMode
	TargetOutboundUserName
	TargetOutboundDomainName
	VirtualAccount
	TargetLinkedLogonId
	ElevatedToken
	MandatoryLabel
	NewProcessId
	NewProcessName
	TokenElevationType
	CommandLine
	ParentProcessName
	TargetLogonGuid
	TargetServerName
	TargetInfo
	PreviousTime
	NewTime
	TargetProcessId
	TargetProcessName
	LoadOptions
	DisableIntegrityChecks
	HypervisorDebug
	Status
	PackageName
	RemoteEventLogging
	VsmLaunchType
	HypervisorLaunchType
	TestSigning
	AdvancedOptions
	SubStatus
	KernelDebug
	Workstation
	FlightSigning
	FailureReason
	ConfigAccessPolicy
	HypervisorLoadOptions
	PuaCount
	TargetSid
	PuaPolicyId
	AccessGranted
	PrivilegeList
	SamAccountName
	SidHistory
	MemberName
	Dummy
	DisplayName
	AccessRemoved
	MemberSid
	UserPrincipalName
	CallerProcessId

	fieldCount
)

var fieldNames = [fieldCount]string{
	SubjectUserSid:            "SubjectUserSid",
	SubjectUserName:           "SubjectUserName",
	SubjectDomainName:         "SubjectDomainName",
	SubjectLogonId:            "SubjectLogonId",
	TargetUserSid:             "TargetUserSid",
	TargetUserName:            "TargetUserName",
	TargetDomainName:          "TargetDomainName",
	TargetLogonId:             "TargetLogonId",
	LogonType:                 "LogonType",
	LogonProcessName:          "LogonProcessName",
	AuthenticationPackageName: "AuthenticationPackageName",
	WorkstationName:           "WorkstationName",
	LogonGuid:                 "LogonGuid",
	TransmittedServices:       "TransmittedServices",
	LmPackageName:             "LmPackageName",
	KeyLength:                 "KeyLength",
	ProcessId:                 "ProcessId",
	ProcessName:               "ProcessName",
	IpAddress:                 "IpAddress",
	IpPort:                    "IpPort",
	ImpersonationLevel:        "ImpersonationLevel",
	RestrictedAdminMode:       "RestrictedAdminMode",
	TargetOutboundUserName:    "TargetOutboundUserName",
	TargetOutboundDomainName:  "TargetOutboundDomainName",
	VirtualAccount:            "VirtualAccount",
	TargetLinkedLogonId:       "TargetLinkedLogonId",
	ElevatedToken:             "ElevatedToken",
	MandatoryLabel:            "MandatoryLabel",
	NewProcessId:              "NewProcessId",
	NewProcessName:            "NewProcessName",
	TokenElevationType:        "TokenElevationType",
	CommandLine:               "CommandLine",
	ParentProcessName:         "ParentProcessName",
	TargetLogonGuid:           "TargetLogonGuid",
	TargetServerName:          "TargetServerName",
	TargetInfo:                "TargetInfo",
	PreviousTime:              "PreviousTime",
	NewTime:                   "NewTime",
	TargetProcessId:           "TargetProcessId",
	TargetProcessName:         "TargetProcessName",
	LoadOptions:               "LoadOptions",
	DisableIntegrityChecks:    "DisableIntegrityChecks",
	HypervisorDebug:           "HypervisorDebug",
	Status:                    "Status",
	PackageName:               "PackageName",
	RemoteEventLogging:        "RemoteEventLogging",
	VsmLaunchType:             "VsmLaunchType",
	HypervisorLaunchType:      "HypervisorLaunchType",
	TestSigning:               "TestSigning",
	AdvancedOptions:           "AdvancedOptions",
	SubStatus:                 "SubStatus",
	KernelDebug:               "KernelDebug",
	Workstation:               "Workstation",
	FlightSigning:             "FlightSigning",
	FailureReason:             "FailureReason",
	ConfigAccessPolicy:        "ConfigAccessPolicy",
	HypervisorLoadOptions:     "HypervisorLoadOptions",
	PuaCount:                  "PuaCount",
	TargetSid:                 "TargetSid",
	PuaPolicyId:               "PuaPolicyId",
	AccessGranted:             "AccessGranted",
	PrivilegeList:             "PrivilegeList",
	SamAccountName:            "SamAccountName",
	SidHistory:                "SidHistory",
	MemberName:                "MemberName",
	Dummy:                     "Dummy",
	DisplayName:               "DisplayName",
	AccessRemoved:             "AccessRemoved",
	MemberSid:                 "MemberSid",
	UserPrincipalName:         "UserPrincipalName",
	CallerProcessId:           "CallerProcessId",
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := FieldUnknown + 1; f < fieldCount; f++ {
		m[fieldNames[f]] = f
	}
	return m
}()

func (f Field) String() string {
	if f == FieldUnknown || f >= fieldCount {
		return "Unknown"
	}
	return fieldNames[f]
}

// Fields returns every known field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount-1)
	for f := FieldUnknown + 1; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// Name is the Name attribute of a Data element: either a known Field or the
// raw text of a name outside the known set.
type Name struct {
	field Field
	raw   string
}

var (
	_ encoding.TextMarshaler   = Name{}
	_ encoding.TextUnmarshaler = (*Name)(nil)
)

// ParseName maps s to its known field. Matching is exact; anything else is
// kept verbatim as an unknown name.
func ParseName(s string) Name {
	if f, ok := fieldsByName[s]; ok {
		return Name{field: f}
	}
	return Name{raw: s}
}

// Known returns the Name of a known field.
func Known(f Field) Name { return Name{field: f} }

// Unknown returns a Name outside the known set.
func Unknown(raw string) Name { return Name{raw: raw} }

// Field returns the known field, or FieldUnknown.
func (n Name) Field() Field { return n.field }

// IsUnknown reports whether n is outside the known set.
func (n Name) IsUnknown() bool { return n.field == FieldUnknown }

// Is reports whether n is the known field f.
func (n Name) Is(f Field) bool { return f != FieldUnknown && n.field == f }

// Raw returns the original name text of an unknown name.
func (n Name) Raw() string { return n.raw }

func (n Name) String() string {
	if n.field != FieldUnknown {
		return n.field.String()
	}
	return n.raw
}

func (n Name) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (n *Name) UnmarshalText(b []byte) error {
	*n = ParseName(string(b))
	return nil
}
