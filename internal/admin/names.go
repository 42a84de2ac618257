package admin

// Destination identifies a subsystem endpoint on the server.
type Destination string

// Scope identifies a configuration category within a destination.
type Scope string

// RequestID identifies the resource or operation class within a scope.
type RequestID string

const (
	DestCA       Destination = "caadmin"
	DestRA       Destination = "raadmin"
	DestKRA      Destination = "kraadmin"
	DestLog      Destination = "log"
	DestOCSP     Destination = "ocsp"
	DestJobs     Destination = "jobsScheduler"
	DestRegistry Destination = "registry"
)

// Destinations lists every well-known destination.
var Destinations = []Destination{DestCA, DestRA, DestKRA, DestLog, DestOCSP, DestJobs, DestRegistry}

const (
	ScopeCACertConfig   Scope = "caCertConfig"
	ScopeUserCertConfig Scope = "userCertConfig"
	ScopeGeneral        Scope = "general"
	ScopeMNScheme       Scope = "mnScheme"
	ScopeAgentPwd       Scope = "agentPwd"
	ScopeOCSPStoreRules Scope = "ocspStoresRules"
	ScopePolicyRules    Scope = "policyRules"
	ScopeMapperRules    Scope = "mapperRules"
	ScopePublisherRules Scope = "publisherRules"

	// Log instances.
	ScopeTransactionsLog Scope = "transactions"
	ScopeSystemLog       Scope = "system"
	ScopeErrorLog        Scope = "error"
)

const (
	RequestConfig RequestID = "RS_ID_CONFIG"
	RequestRead   RequestID = "OP_READ"
	RequestModify RequestID = "OP_MODIFY"
)

// Parameter names. All values are strings on the wire.
const (
	ParamMapperImplName    = "mapperImplName"
	ParamPublisherImplName = "publisherImplName"
	ParamImplName          = "implName"

	ParamLogEnabled          = "enable"
	ParamLogLevel            = "level"
	ParamLogBufferSize       = "bufferSize"
	ParamLogMaxFileSize      = "maxFileSize"
	ParamLogRolloverInterval = "rolloverInterval"

	ParamRequiredAgents   = "noOfRequiredRecoveryAgents"
	ParamRecoveryM        = "recoveryM"
	ParamRecoveryN        = "recoveryN"
	ParamRecoveryAgent    = "recoveryAgent"
	ParamOldRecoveryAgent = "oldRecoveryAgent"

	ParamEnableSerialManagement = "enableSerialManagement"
	ParamCipherSuites           = "cipherSuites"
)
