// Package saga drives the persisted, fine-grained provisioning saga.
//
// A job moves through the states declared in the deployment package:
//
//	INIT -> STEP0_CF_ZONE_CREATED -> [STEP0_DOMAIN_REGISTER_REQUESTED ->
//	STEP0_DOMAIN_REGISTERED] -> STEP1_DNS_RECORDS_UPSERTED ->
//	STEP1_CF_STATUS_SNAPSHOT -> GATE_WAIT_CF_ACTIVE ->
//	STEP2_COOLIFY_CREATE_REQUESTED -> STEP2_COOLIFY_CREATED ->
//	STEP2_COOLIFY_DEPLOY_REQUESTED -> STEP2_COOLIFY_DEPLOY_RUNNING ->
//	STEP2_COOLIFY_DEPLOY_SUCCEEDED -> STEP2_HTTP_VERIFIED -> COMPLETE
//
// Each state has one step function returning a [StepResult]. The [Driver]
// matches on the result, persists the full job snapshot after every
// transition and holds the job lock for the whole invocation. A step whose
// output is already recorded makes no remote call, so resuming a job never
// repeats completed side effects.
//
// The zone-activation gate and the deployment poll are bounded retry
// policies. Running out of gate time leaves the job in the gate; a later
// resume polls again.
package saga
