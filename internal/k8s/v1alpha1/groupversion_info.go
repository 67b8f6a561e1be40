package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

// GroupVersion is the API group and version this package's types belong
// to.
var GroupVersion = schema.GroupVersion{Group: "agentmesh.dev", Version: "v1alpha1"}

// SchemeBuilder collects functions that add types to a Scheme.
var SchemeBuilder = &scheme.Builder{GroupVersion: GroupVersion}

// AddToScheme adds this package's types to a Scheme.
var AddToScheme = SchemeBuilder.AddToScheme
