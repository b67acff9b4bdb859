package config

// Propagation headers carried on outbound calls so a downstream invocation can
// attach its trace as a child of ours.
const (
	TraceIDHeader  = "FaaS-Profiler-Trace-ID"
	RecordIDHeader = "FaaS-Profiler-Record-ID"
	ParentIDHeader = "FaaS-Profiler-Parent-ID"
)

const Unidentified = "unidentified"

// Delimiters for flattening request identifiers into a single sortable key.
const (
	KeyValueDelimiter   = "#"
	IdentifierDelimiter = KeyValueDelimiter + KeyValueDelimiter

	FunctionKeyDelimiter = "::"
)

// Provider is a cloud provider hosting the profiled function.
type Provider string

const (
	ProviderUnidentified Provider = Unidentified
	ProviderAWS          Provider = "aws"
	ProviderGCP          Provider = "gcp"
	ProviderAzure        Provider = "azure"
)

// Runtime is the language runtime executing the handler.
type Runtime string

const (
	RuntimeUnidentified Runtime = Unidentified
	RuntimeGo           Runtime = "go"
	RuntimePython       Runtime = "python"
	RuntimeNode         Runtime = "node"
)

// Service names a provider service an inbound or outbound request touches.
type Service string

const (
	ServiceUnidentified Service = Unidentified
	ServiceLambda       Service = "lambda"
	ServiceDynamoDB     Service = "dynamodb"
	ServiceS3           Service = "s3"
	ServiceSNS          Service = "sns"
	ServiceSQS          Service = "sqs"
	ServiceAPIGateway   Service = "api_gateway"
)

// Operation names the operation performed on a service.
type Operation string

const (
	OperationUnidentified    Operation = Unidentified
	OperationS3ObjectCreate  Operation = "ObjectCreated"
	OperationS3ObjectRemoved Operation = "ObjectRemoved"
	OperationDynamoDBUpdate  Operation = "Update"
	OperationGatewayProxy    Operation = "GatewayProxy"
	OperationSQSReceive      Operation = "ReceiveMessage"
	OperationSNSNotification Operation = "TopicNotification"
)

// TriggerSynchronicity tells whether the trigger blocked on the invocation.
type TriggerSynchronicity string

const (
	TriggerUnidentified TriggerSynchronicity = Unidentified
	TriggerSync         TriggerSynchronicity = "sync"
	TriggerAsync        TriggerSynchronicity = "async"
)
