package gaussmarkov

import (
	"math"

	"github.com/aphros-lab/gfp-gaussian/specfun"
)

// terms bundles the prior mean/covariance components and the OU
// parameters every mean_*/cov_* helper below needs, so those helpers
// read as methods on one receiver instead of each repeating a long
// positional argument list.
type terms struct {
	t float64

	bx, bg, bl, bq     float64
	Cxx, Cxg, Cxl, Cxq float64
	Cgg, Cgl, Cgq      float64
	Cll, Clq           float64
	Cqq                float64

	ml, gl, sl2 float64
	mq, gq, sq2 float64
	b           float64
}

// Propagate advances a cell's Gaussian belief by dt with no division.
func Propagate(prior State, dt float64, theta Theta) State {
	p := terms{
		t:   dt,
		bx:  prior.Mean.AtVec(idxX),
		bg:  prior.Mean.AtVec(idxG),
		bl:  prior.Mean.AtVec(idxL),
		bq:  prior.Mean.AtVec(idxQ),
		Cxx: prior.Cov.At(idxX, idxX),
		Cxg: prior.Cov.At(idxX, idxG),
		Cxl: prior.Cov.At(idxX, idxL),
		Cxq: prior.Cov.At(idxX, idxQ),
		Cgg: prior.Cov.At(idxG, idxG),
		Cgl: prior.Cov.At(idxG, idxL),
		Cgq: prior.Cov.At(idxG, idxQ),
		Cll: prior.Cov.At(idxL, idxL),
		Clq: prior.Cov.At(idxL, idxQ),
		Cqq: prior.Cov.At(idxQ, idxQ),
		ml:  theta.MeanLambda,
		gl:  theta.GammaLambda,
		sl2: theta.VarLambda,
		mq:  theta.MeanQ,
		gq:  theta.GammaQ,
		sq2: theta.VarQ,
		b:   theta.Beta,
	}

	nmX := p.meanX()
	nmG := p.meanG()
	nmL := p.meanL()
	nmQ := p.meanQ()

	out := NewState()
	out.Mean.SetVec(idxX, nmX)
	out.Mean.SetVec(idxG, nmG)
	out.Mean.SetVec(idxL, nmL)
	out.Mean.SetVec(idxQ, nmQ)

	xg := p.covXG(nmG, nmX)
	xl := p.covXL()
	xq := p.covXQ()
	gl := p.covGL(nmG, nmL)
	gq := p.covGQ(nmG, nmQ)
	lq := p.covLQ()

	out.Cov.Set(idxX, idxG, xg)
	out.Cov.Set(idxG, idxX, xg)
	out.Cov.Set(idxX, idxL, xl)
	out.Cov.Set(idxL, idxX, xl)
	out.Cov.Set(idxX, idxQ, xq)
	out.Cov.Set(idxQ, idxX, xq)
	out.Cov.Set(idxG, idxL, gl)
	out.Cov.Set(idxL, idxG, gl)
	out.Cov.Set(idxG, idxQ, gq)
	out.Cov.Set(idxQ, idxG, gq)
	out.Cov.Set(idxL, idxQ, lq)
	out.Cov.Set(idxQ, idxL, lq)

	out.Cov.Set(idxX, idxX, p.covXX())
	out.Cov.Set(idxG, idxG, p.covGG(nmG))
	out.Cov.Set(idxL, idxL, p.covLL())
	out.Cov.Set(idxQ, idxQ, p.covQQ())

	return out
}

func (p terms) meanX() float64 {
	return p.bx + p.ml*p.t + (p.bl-p.ml)*(1-math.Exp(-p.gl*p.t))/p.gl
}

func (p terms) meanG() float64 {
	t := p.t
	a0 := p.Cll / 2.
	return p.bg/math.Exp(p.b*t) +
		p.Clq*specfun.I1(a0, p.b+p.bl+p.Cxl-p.gq, p.bx+p.Cxx/2.-p.b*t, 0, t) +
		p.mq*specfun.I0(a0, p.b+p.bl+p.Cxl, p.bx+p.Cxx/2.-p.b*t, 0, t) +
		(p.bq+p.Cxq-p.mq)*specfun.I0(a0, p.b+p.bl+p.Cxl-p.gq, p.bx+p.Cxx/2.-p.b*t, 0, t)
}

func (p terms) meanL() float64 {
	return p.ml + (p.bl-p.ml)*math.Exp(-p.gl*p.t)
}

func (p terms) meanQ() float64 {
	return p.mq + (p.bq-p.mq)*math.Exp(-p.gq*p.t)
}

func (p terms) covXX() float64 {
	t, gl, sl2 := p.t, p.gl, p.sl2
	e := math.Exp(-gl * t)
	return p.Cll*(1-e)*(1-e)/(gl*gl) + 2*p.Cxl*(1-e)/gl + p.Cxx +
		sl2/(2*math.Pow(gl, 3))*(2*gl*t-3+4*e-e*e)
}

func (p terms) covXG(nmG, nmX float64) float64 {
	t, b, gl, ml, mq := p.t, p.b, p.gl, p.ml, p.mq
	bx, bg, bl, bq := p.bx, p.bg, p.bl, p.bq
	Cxx, Cxg, Cxl, Cxq := p.Cxx, p.Cxg, p.Cxl, p.Cxq
	Cll, Clq := p.Cll, p.Clq
	a0 := Cll / 2.
	ebt := math.Exp(b * t)
	ebglt := math.Exp((b + gl) * t)

	v := (bg*bx)/ebt + Cxg/ebt + (bg*bl)/(ebt*gl) + p.Cgl/(ebt*gl) - (bg*bl)/(ebglt*gl) -
		p.Cgl/(ebglt*gl) - (bg*ml)/(ebt*gl) + (bg*ml)/(ebglt*gl) + (bg*ml*t)/ebt +
		(Cxl*mq+(Cll*mq)/gl)*specfun.I1(a0, b+bl+Cxl, bx+Cxx/2.-b*t, 0, t) -
		(Cll*mq*specfun.I1(a0, b+bl+Cxl, bx+Cxx/2.-b*t-gl*t, 0, t))/gl +
		(bx*Clq+bq*Cxl+Cxl*Cxq+Clq*Cxx+(bq*Cll)/gl+(bl*Clq)/gl+(Clq*Cxl)/gl+(Cll*Cxq)/gl-(Clq*ml)/gl-Cxl*mq-
			(Cll*mq)/gl+Clq*ml*t)*specfun.I1(a0, b+bl+Cxl-p.gq, bx+Cxx/2.-b*t, 0, t) +
		(-((bq*Cll)/gl)-(bl*Clq)/gl-(Clq*Cxl)/gl-(Cll*Cxq)/gl+(Clq*ml)/gl+(Cll*mq)/gl)*
			specfun.I1(a0, b+bl+Cxl-p.gq, bx+Cxx/2.-b*t-gl*t, 0, t) +
		(Clq*Cxl+(Cll*Clq)/gl)*specfun.I2(a0, b+bl+Cxl-p.gq, bx+Cxx/2.-b*t, 0, t) -
		(Cll*Clq*specfun.I2(a0, b+bl+Cxl-p.gq, bx+Cxx/2.-b*t-gl*t, 0, t))/gl +
		(bx*mq+Cxx*mq+(bl*mq)/gl+(Cxl*mq)/gl-(ml*mq)/gl+ml*mq*t)*specfun.I0(a0, b+bl+Cxl, bx+Cxx/2.-b*t, 0, t) +
		(-((bl*mq)/gl)-(Cxl*mq)/gl+(ml*mq)/gl)*specfun.I0(a0, b+bl+Cxl, bx+Cxx/2.-b*t-gl*t, 0, t) +
		(bq*bx+Cxq+bx*Cxq+bq*Cxx+Cxq*Cxx+(bl*bq)/gl+Clq/gl+(bq*Cxl)/gl+(bl*Cxq)/gl+(Cxl*Cxq)/gl-(bq*ml)/gl-
			(Cxq*ml)/gl-bx*mq-Cxx*mq-(bl*mq)/gl-(Cxl*mq)/gl+(ml*mq)/gl+bq*ml*t+Cxq*ml*t-ml*mq*t)*
			specfun.I0(a0, b+bl+Cxl-p.gq, bx+Cxx/2.-b*t, 0, t) +
		(-((bl*bq)/gl)-Clq/gl-(bq*Cxl)/gl-(bl*Cxq)/gl-(Cxl*Cxq)/gl+(bq*ml)/gl+(Cxq*ml)/gl+(bl*mq)/gl+(Cxl*mq)/gl-
			(ml*mq)/gl)*specfun.I0(a0, b+bl+Cxl-p.gq, bx+Cxx/2.-b*t-gl*t, 0, t)

	return v - nmG*nmX
}

func (p terms) covXL() float64 {
	t, gl, sl2 := p.t, p.gl, p.sl2
	e := math.Exp(-gl * t)
	return sl2/(2*gl*gl)*(1-e)*(1-e) + p.Cll*e*(1-e)/gl + p.Cxl*e
}

func (p terms) covXQ() float64 {
	t, gl, gq := p.t, p.gl, p.gq
	return p.Clq*(1-math.Exp(-gl*t))*math.Exp(-gq*t)/gl + p.Cxq*math.Exp(-gq*t)
}

func (p terms) covGG(nmG float64) float64 {
	t, b, gq, mq, sq2 := p.t, p.b, p.gq, p.mq, p.sq2
	bx, bg, bl, bq := p.bx, p.bg, p.bl, p.bq
	Cxx, Cxg, Cxl, Cxq := p.Cxx, p.Cxg, p.Cxl, p.Cxq
	Cgg, Cgl, Cgq := p.Cgg, p.Cgl, p.Cgq
	Cll, Clq, Cqq := p.Cll, p.Clq, p.Cqq
	a0 := Cll / 2.

	v := (bg*bg+Cgg)/math.Exp(2*b*t) +
		2*Cgl*mq*specfun.I1(a0, b+bl+Cxl, bx+Cxx/2.-2*b*t, 0, t) +
		(mq*(2*Clq+gq*mq)*specfun.I1(a0, b+bl+2*Cxl, 2*(bx+Cxx-b*t), 0, t))/gq +
		2*(bq*Cgl+bg*Clq+Clq*Cxg+Cgl*Cxq-Cgl*mq)*specfun.I1(a0, b+bl+Cxl-gq, bx+Cxx/2.-2*b*t, 0, t) +
		((bq*bq*gq+Cqq*gq+4*bq*Cxq*gq+4*Cxq*Cxq*gq-2*Clq*mq-2*bq*gq*mq-4*Cxq*gq*mq+gq*mq*mq)*
			specfun.I1(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), 0, t))/gq -
		mq*mq*specfun.I1(a0, b+bl+2*Cxl, 2*(bx+Cxx-b*t), t, 2*t) -
		(2*Clq*mq*specfun.I1(a0, b+bl+2*Cxl, 2*bx+2*Cxx-(2*b+gq)*t, t, 2*t))/gq -
		(sq2*specfun.I1(a0, b+bl+2*Cxl-gq, 2*bx+2*Cxx-2*b*t, 0, t))/(2.*gq) +
		(sq2*specfun.I1(a0, b+bl+2*Cxl-gq, 2*bx+2*Cxx-2*b*t, t, 2*t))/(2.*gq) +
		(-bq*bq-Cqq-4*bq*Cxq-4*Cxq*Cxq+2*bq*mq+4*Cxq*mq-mq*mq+4*bq*Clq*t+8*Clq*Cxq*t-4*Clq*mq*t)*
			specfun.I1(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), t, 2*t) +
		(2*Clq*mq*specfun.I1(a0, b+bl+2*Cxl-gq, 2*bx+2*Cxx-2*b*t+gq*t, t, 2*t))/gq +
		Clq*Clq*specfun.I3(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), 0, t) -
		Clq*Clq*specfun.I3(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), t, 2*t) +
		2*Cgl*Clq*specfun.I2(a0, b+bl+Cxl-gq, bx+Cxx/2.-2*b*t, 0, t) +
		(2*bq*Clq+4*Clq*Cxq-2*Clq*mq)*specfun.I2(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), 0, t) +
		(-2*bq*Clq-4*Clq*Cxq+2*Clq*mq+2*Clq*Clq*t)*specfun.I2(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), t, 2*t) +
		(2*bg*mq+2*Cxg*mq)*specfun.I0(a0, b+bl+Cxl, bx+Cxx/2.-2*b*t, 0, t) +
		((2*bq*mq)/gq+(4*Cxq*mq)/gq-(2*mq*mq)/gq)*specfun.I0(a0, b+bl+2*Cxl, 2*(bx+Cxx-b*t), 0, t) +
		(2*bg*bq+2*Cgq+2*bq*Cxg+2*bg*Cxq+2*Cxg*Cxq-2*bg*mq-2*Cxg*mq)*specfun.I0(a0, b+bl+Cxl-gq, bx+Cxx/2.-2*b*t, 0, t) +
		((-2*bq*mq)/gq-(4*Cxq*mq)/gq+(2*mq*mq)/gq)*specfun.I0(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), 0, t) +
		(sq2*specfun.I0(a0, b+bl+2*Cxl, 2*bx+2*Cxx-2*b*t, 0, t))/(2.*gq*gq) +
		(sq2*specfun.I0(a0, b+bl+2*Cxl, 2*bx+2*Cxx-2*b*t, t, 2*t))/(2.*gq*gq) +
		2*mq*mq*t*specfun.I0(a0, b+bl+2*Cxl, 2*(bx+Cxx-b*t), t, 2*t) +
		((-2*bq*mq)/gq-(4*Cxq*mq)/gq+(2*mq*mq)/gq)*specfun.I0(a0, b+bl+2*Cxl, 2*bx+2*Cxx-(2*b+gq)*t, t, 2*t) -
		(sq2*specfun.I0(a0, b+bl+2*Cxl-gq, 2*bx+2*Cxx-2*b*t, 0, t))/(2.*gq*gq) -
		(sq2*t*specfun.I0(a0, b+bl+2*Cxl-gq, 2*bx+2*Cxx-2*b*t, t, 2*t))/gq +
		(2*bq*bq*t+2*Cqq*t+8*bq*Cxq*t+8*Cxq*Cxq*t-4*bq*mq*t-8*Cxq*mq*t+2*mq*mq*t)*
			specfun.I0(a0, b+bl+2*Cxl-gq, 2*(bx+Cxx-b*t), t, 2*t) +
		((2*bq*mq)/gq+(4*Cxq*mq)/gq-(2*mq*mq)/gq)*specfun.I0(a0, b+bl+2*Cxl-gq, 2*bx+2*Cxx-2*b*t+gq*t, t, 2*t) -
		(sq2*specfun.I0(a0, b+bl+2*Cxl+gq, 2*bx+2*Cxx-2*b*t-2*gq*t, t, 2*t))/(2.*gq*gq)

	return v - nmG*nmG
}

func (p terms) covGL(nmG, nmL float64) float64 {
	t, b, gl, gq, ml, mq := p.t, p.b, p.gl, p.gq, p.ml, p.mq
	bx, bl, bq := p.bx, p.bl, p.bq
	Cxx, Cxl, Cxq := p.Cxx, p.Cxl, p.Cxq
	Cll, Clq := p.Cll, p.Clq
	a0 := Cll / 2.
	ebglt := math.Exp((b + gl) * t)
	ebt := math.Exp(b * t)

	v := (p.bg*bl)/ebglt + p.Cgl/ebglt + (p.bg*ml)/ebt - (p.bg*ml)/ebglt +
		Cll*mq*specfun.I1(a0, b+bl+Cxl, bx+Cxx/2.-b*t-gl*t, 0, t) +
		Clq*ml*specfun.I1(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t, 0, t) +
		(bq*Cll+bl*Clq+Clq*Cxl+Cll*Cxq-Clq*ml-Cll*mq)*specfun.I1(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t-gl*t, 0, t) +
		Cll*Clq*specfun.I2(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t-gl*t, 0, t) +
		ml*mq*specfun.I0(a0, b+bl+Cxl, bx+Cxx/2.-b*t, 0, t) +
		(bl*mq+Cxl*mq-ml*mq)*specfun.I0(a0, b+bl+Cxl, bx+Cxx/2.-b*t-gl*t, 0, t) +
		(bq*ml+Cxq*ml-ml*mq)*specfun.I0(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t, 0, t) +
		(bl*bq+Clq+bq*Cxl+bl*Cxq+Cxl*Cxq-bq*ml-Cxq*ml-bl*mq-Cxl*mq+ml*mq)*
			specfun.I0(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t-gl*t, 0, t)

	return v - nmG*nmL
}

func (p terms) covGQ(nmG, nmQ float64) float64 {
	t, b, gq, mq, sq2 := p.t, p.b, p.gq, p.mq, p.sq2
	bx, bl, bq := p.bx, p.bl, p.bq
	Cxx, Cxl, Cxq := p.Cxx, p.Cxl, p.Cxq
	Cll, Clq, Cqq := p.Cll, p.Clq, p.Cqq
	a0 := Cll / 2.
	ebgqt := math.Exp((b + gq) * t)
	ebt := math.Exp(b * t)

	v := (p.bg*bq)/ebgqt + p.Cgq/ebgqt + (p.bg*mq)/ebt - (p.bg*mq)/ebgqt +
		Clq*mq*specfun.I1(a0, b+bl+Cxl, bx+Cxx/2.-b*t-gq*t, 0, t) +
		Clq*mq*specfun.I1(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t, 0, t) +
		(2*bq*Clq+2*Clq*Cxq-2*Clq*mq)*specfun.I1(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t-gq*t, 0, t) +
		Clq*Clq*specfun.I2(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t-gq*t, 0, t) +
		mq*mq*specfun.I0(a0, b+bl+Cxl, bx+Cxx/2.-b*t, 0, t) +
		(bq*mq+Cxq*mq-mq*mq)*specfun.I0(a0, b+bl+Cxl, bx+Cxx/2.-b*t-gq*t, 0, t) +
		(bq*mq+Cxq*mq-mq*mq)*specfun.I0(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t, 0, t) -
		(sq2*specfun.I0(a0, b+bl+Cxl-gq, -b*t+bx+Cxx/2.-gq*t, 0, t))/(2.*gq) +
		(bq*bq+Cqq+2*bq*Cxq+Cxq*Cxq-2*bq*mq-2*Cxq*mq+mq*mq)*specfun.I0(a0, b+bl+Cxl-gq, bx+Cxx/2.-b*t-gq*t, 0, t) +
		(sq2*specfun.I0(a0, b+bl+Cxl+gq, -b*t+bx+Cxx/2.-gq*t, 0, t))/(2.*gq)

	return v - nmG*nmQ
}

func (p terms) covLL() float64 {
	t, gl, sl2 := p.t, p.gl, p.sl2
	e := math.Exp(-gl * t)
	return p.Cll*e*e + sl2/(2*gl)*(1-e*e)
}

func (p terms) covLQ() float64 {
	return p.Clq * math.Exp(-p.gl*p.t) * math.Exp(-p.gq*p.t)
}

func (p terms) covQQ() float64 {
	t, gq, sq2 := p.t, p.gq, p.sq2
	e := math.Exp(-gq * t)
	return sq2/(2*gq)*(1-e*e) + p.Cqq*e*e
}
